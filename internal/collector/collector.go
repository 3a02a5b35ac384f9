// Package collector drives a statement provider over a list of tickers in
// small, paced batches, retrying transient failures a bounded number of
// times and persisting one normalized record per successful ticker.
//
// Execution is strictly sequential. The only suspension points are the
// randomized pause between batches and the cooldown before a retry.
package collector

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seenimoa/smartvalue/internal/normalize"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/store"
	"github.com/seenimoa/smartvalue/pkg/models"
)

// Fetcher is the slice of provider.Provider the collector needs.
type Fetcher interface {
	FetchStatements(ctx context.Context, ticker string) (*models.Statements, error)
}

// SleepKind distinguishes the two pauses a run can take.
type SleepKind string

const (
	BatchDelay    SleepKind = "batch_delay"
	RetryCooldown SleepKind = "retry_cooldown"
)

// SleepFunc blocks for d. kind says why.
type SleepFunc func(kind SleepKind, d time.Duration)

// Options holds batching and retry settings.
type Options struct {
	BatchSize     int
	MaxRetries    int // retries after the first attempt
	Cooldown      time.Duration
	MinBatchDelay time.Duration
	MaxBatchDelay time.Duration
}

// DefaultOptions returns the reference pacing: batches of 3, two retries
// after a 60s cooldown, 15 to 90 seconds between batches.
func DefaultOptions() Options {
	return Options{
		BatchSize:     3,
		MaxRetries:    2,
		Cooldown:      60 * time.Second,
		MinBatchDelay: 15 * time.Second,
		MaxBatchDelay: 90 * time.Second,
	}
}

// Collector runs collection jobs against one provider.
type Collector struct {
	source     string
	fetcher    Fetcher
	normalizer *normalize.Normalizer
	store      store.RecordStore
	opts       Options
	sleep      SleepFunc
	rng        *rand.Rand
	logger     zerolog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithOptions sets batching and retry settings.
func WithOptions(o Options) Option {
	return func(c *Collector) { c.opts = o }
}

// WithStore persists each record as soon as it is built.
func WithStore(s store.RecordStore) Option {
	return func(c *Collector) { c.store = s }
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(c *Collector) { c.normalizer = n }
}

// WithSleeper replaces time.Sleep.
func WithSleeper(fn SleepFunc) Option {
	return func(c *Collector) { c.sleep = fn }
}

// WithRand sets the source used to draw batch delays.
func WithRand(r *rand.Rand) Option {
	return func(c *Collector) { c.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// New creates a Collector fetching from f, which is registered as source.
func New(source string, f Fetcher, opts ...Option) *Collector {
	c := &Collector{
		source:  source,
		fetcher: f,
		opts:    DefaultOptions(),
		sleep:   func(_ SleepKind, d time.Duration) { time.Sleep(d) },
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.opts.BatchSize < 1 {
		c.opts.BatchSize = 1
	}
	if c.opts.MaxRetries < 0 {
		c.opts.MaxRetries = 0
	}
	if c.normalizer == nil {
		c.normalizer = normalize.New(normalize.Options{}, c.logger)
	}
	return c
}

// Outcome is the result of one ticker: a record on success, the final
// error otherwise.
type Outcome struct {
	Ticker   string
	State    State
	Attempts int
	Record   *models.CompanyRecord
	Err      error
}

// OK reports whether the ticker produced a record.
func (o Outcome) OK() bool { return o.State == Success }

// Report summarizes a run.
type Report struct {
	RunID    uuid.UUID
	Source   string
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
	Failures []string
}

// Records returns the records of the successful tickers in input order.
func (r *Report) Records() []*models.CompanyRecord {
	var out []*models.CompanyRecord
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o.Record)
		}
	}
	return out
}

// TotalAttempts sums fetch attempts over all tickers.
func (r *Report) TotalAttempts() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Attempts
	}
	return n
}

// Collect processes tickers in batches and returns the run report. It never
// fails as a whole: every error is scoped to its ticker and surfaces in
// Report.Failures.
func (c *Collector) Collect(ctx context.Context, tickers []string) *Report {
	job := NewJob(tickers)
	rep := &Report{
		RunID:   uuid.New(),
		Source:  c.source,
		Started: time.Now(),
	}
	log := c.logger.With().Str("run_id", rep.RunID.String()).Str("provider", c.source).Logger()
	log.Info().Int("tickers", job.Remaining()).Int("batch_size", c.opts.BatchSize).Msg("collection started")

	for batch := 0; job.Remaining() > 0; batch++ {
		if batch > 0 && ctx.Err() == nil {
			d := c.batchDelay()
			log.Debug().Int("batch", batch).Dur("delay", d).Msg("pausing between batches")
			c.sleep(BatchDelay, d)
		}
		for i := 0; i < c.opts.BatchSize; i++ {
			ticker, ok := job.Next()
			if !ok {
				break
			}
			out := c.collectOne(ctx, job, ticker, log.With().Int("batch", batch).Logger())
			rep.Outcomes = append(rep.Outcomes, out)
		}
	}

	rep.Failures = job.Failures()
	rep.Finished = time.Now()
	log.Info().
		Int("succeeded", len(rep.Outcomes)-len(rep.Failures)).
		Strs("failures", rep.Failures).
		Dur("elapsed", rep.Finished.Sub(rep.Started)).
		Msg("collection finished")
	return rep
}

// collectOne runs the bounded retry loop for one in-flight ticker.
func (c *Collector) collectOne(ctx context.Context, job *Job, ticker string, log zerolog.Logger) Outcome {
	log = log.With().Str("ticker", ticker).Logger()
	for {
		attempt := job.Attempt(ticker)

		st, err := c.fetcher.FetchStatements(ctx, ticker)
		if err == nil && st == nil {
			err = provider.ErrNoStatements
		}
		if err == nil {
			if st.Ticker == "" {
				st.Ticker = ticker
			}
			if st.Source == "" {
				st.Source = c.source
			}
			rec := c.normalizer.Normalize(st)
			if c.store != nil {
				if perr := c.store.Put(ctx, rec); perr != nil {
					log.Error().Err(perr).Msg("persist record")
					job.Fail(ticker)
					return Outcome{Ticker: ticker, State: PermanentFailure, Attempts: attempt, Err: perr}
				}
			}
			job.Succeed(ticker)
			log.Info().Int("attempt", attempt).Msg("collected")
			return Outcome{Ticker: ticker, State: Success, Attempts: attempt, Record: rec}
		}

		err = provider.Classify(c.source, ticker, err)
		if !provider.IsRetryable(err) || attempt > c.opts.MaxRetries || ctx.Err() != nil {
			ev := log.Warn()
			if errors.Is(err, context.Canceled) {
				ev = log.Info()
			}
			ev.Err(err).Int("attempt", attempt).Msg("giving up on ticker")
			job.Fail(ticker)
			return Outcome{Ticker: ticker, State: PermanentFailure, Attempts: attempt, Err: err}
		}

		job.Retry(ticker)
		log.Warn().Err(err).Int("attempt", attempt).Dur("cooldown", c.opts.Cooldown).Msg("retrying after cooldown")
		c.sleep(RetryCooldown, c.opts.Cooldown)
	}
}

// batchDelay draws a pause uniformly from [MinBatchDelay, MaxBatchDelay].
func (c *Collector) batchDelay() time.Duration {
	lo, hi := c.opts.MinBatchDelay, c.opts.MaxBatchDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(c.rng.Int64N(int64(hi-lo)+1))
}
