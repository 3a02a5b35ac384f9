// Package monitor refreshes the monitor workbook and every valuation model
// on a cron schedule: macro rates into the Macro sheet, current price and
// fx rate into each model's Dashboard.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/seenimoa/smartvalue/internal/macro"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/sheet"
	"github.com/seenimoa/smartvalue/pkg/models"
)

// DefaultSchedule runs at 18:00 on weekdays.
const DefaultSchedule = "0 18 * * 1-5"

const defaultRunTimeout = 30 * time.Minute

// Quoter prices tickers. *provider.Registry satisfies it.
type Quoter interface {
	Quote(ctx context.Context, source, ticker string) (*models.Quote, error)
}

// RateSource converts between currencies. *forex.Converter satisfies it.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// MacroSource returns the current risk-free rates. *macro.Service
// satisfies it.
type MacroSource interface {
	Snapshot(ctx context.Context) (macro.Snapshot, error)
}

// ModelUpdate is the outcome of refreshing one model.
type ModelUpdate struct {
	Path   string
	Symbol string
	Price  float64
	FxRate float64
	Err    error
}

// Result summarizes one run.
type Result struct {
	StartedAt time.Time
	Duration  time.Duration
	Macro     *macro.Snapshot
	MacroErr  error
	Models    []ModelUpdate
}

// Failed counts the models that could not be refreshed.
func (r *Result) Failed() int {
	n := 0
	for _, m := range r.Models {
		if m.Err != nil {
			n++
		}
	}
	return n
}

// Runner executes monitor runs.
type Runner struct {
	quotes      Quoter
	rates       RateSource
	macro       MacroSource
	source      string
	modelDir    string
	monitorPath string
	timeout     time.Duration
	logger      zerolog.Logger
	cron        *cron.Cron
}

// Option configures a Runner.
type Option func(*Runner)

// WithSource selects the provider used for quotes. Empty uses the
// registry default.
func WithSource(name string) Option {
	return func(r *Runner) { r.source = name }
}

// WithModelDir sets the folder holding the valuation models.
func WithModelDir(dir string) Option {
	return func(r *Runner) { r.modelDir = dir }
}

// WithMonitorPath sets the workbook receiving the macro rates.
func WithMonitorPath(path string) Option {
	return func(r *Runner) { r.monitorPath = path }
}

// WithRunTimeout bounds each scheduled run.
func WithRunTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a runner. A nil macro source skips the macro refresh.
func New(quotes Quoter, rates RateSource, ms MacroSource, opts ...Option) *Runner {
	r := &Runner{
		quotes:  quotes,
		rates:   rates,
		macro:   ms,
		timeout: defaultRunTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce refreshes the macro sheet and then every model. Failures of
// single models are reported in the result; the returned error is only
// set when the run could not start or nothing was configured.
func (r *Runner) RunOnce(ctx context.Context) (*Result, error) {
	if r.monitorPath == "" && r.modelDir == "" {
		return nil, errors.New("monitor: neither monitor workbook nor model folder configured")
	}
	res := &Result{StartedAt: time.Now()}

	if r.monitorPath != "" && r.macro != nil {
		snap, err := r.refreshMacro(ctx)
		if err != nil {
			r.logger.Error().Err(err).Str("path", r.monitorPath).Msg("macro refresh failed")
			res.MacroErr = err
		} else {
			res.Macro = &snap
		}
	}

	if r.modelDir != "" {
		paths, err := sheet.ListModels(r.modelDir)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			u := r.refreshModel(ctx, p)
			if u.Err != nil {
				r.logger.Warn().Err(u.Err).Str("path", p).Str("ticker", u.Symbol).Msg("model refresh failed")
			}
			res.Models = append(res.Models, u)
		}
	}

	res.Duration = time.Since(res.StartedAt)
	r.logger.Info().
		Int("models", len(res.Models)).
		Int("failed", res.Failed()).
		Bool("macro", res.Macro != nil).
		Dur("duration", res.Duration).
		Msg("monitor run completed")
	return res, nil
}

func (r *Runner) refreshMacro(ctx context.Context) (macro.Snapshot, error) {
	snap, err := r.macro.Snapshot(ctx)
	if err != nil {
		return snap, err
	}
	wb, err := sheet.Open(r.monitorPath)
	if err != nil {
		return snap, err
	}
	defer wb.Close()
	if err := sheet.WriteMacro(wb, snap); err != nil {
		return snap, err
	}
	return snap, wb.Save()
}

func (r *Runner) refreshModel(ctx context.Context, path string) ModelUpdate {
	u := ModelUpdate{Path: path}
	wb, err := sheet.Open(path)
	if err != nil {
		u.Err = err
		return u
	}
	defer wb.Close()

	if u.Symbol, err = sheet.ReadSymbol(wb); err != nil {
		u.Err = err
		return u
	}
	p, err := Price(ctx, r.quotes, r.rates, r.source, u.Symbol)
	if err != nil {
		u.Err = err
		return u
	}
	u.Price, u.FxRate = p.Price, p.FxRate

	if err := sheet.UpdateDashboard(wb, p); err != nil {
		u.Err = err
		return u
	}
	u.Err = wb.Save()
	return u
}

// Price quotes ticker and converts from its report currency into the
// price currency.
func Price(ctx context.Context, quotes Quoter, rates RateSource, source, ticker string) (sheet.Pricing, error) {
	q, err := quotes.Quote(ctx, source, ticker)
	if err != nil {
		return sheet.Pricing{}, err
	}
	if q == nil {
		return sheet.Pricing{}, provider.NewProviderError(source, ticker, provider.ErrNoQuote)
	}
	fx, err := rates.Rate(ctx, q.ReportCurrency, q.PriceCurrency)
	if err != nil {
		return sheet.Pricing{}, fmt.Errorf("%s fx %s/%s: %w", ticker, q.ReportCurrency, q.PriceCurrency, err)
	}
	return sheet.Pricing{Price: q.Price, FxRate: fx}, nil
}

// Start schedules RunOnce with a standard five-field cron expression.
func (r *Runner) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, r.scheduled); err != nil {
		return fmt.Errorf("monitor schedule %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()
	r.logger.Info().Str("schedule", schedule).Msg("monitor scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (r *Runner) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.logger.Info().Msg("monitor scheduler stopped")
}

func (r *Runner) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("scheduled monitor run failed")
	}
}
