// Package macro provides the risk-free rates and inflation used by the
// valuation models.
package macro

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/smartvalue/internal/infra"
	"github.com/seenimoa/smartvalue/internal/providers/fred"
	"github.com/seenimoa/smartvalue/internal/providers/hkma"
)

// Country codes.
const (
	US = "us"
	CN = "cn"
	HK = "hk"
)

// ErrNotAvailable is returned for a country without a data series.
var ErrNotAvailable = errors.New("macro: not available")

// SeriesSource returns the latest value of a FRED series.
type SeriesSource interface {
	Latest(ctx context.Context, seriesID string) (fred.Observation, error)
}

// YieldSource returns the Hong Kong 10-year benchmark yield.
type YieldSource interface {
	TenYearYield(ctx context.Context) (hkma.Yield, error)
}

// Rates holds the fixed fallback rates.
type Rates struct {
	US float64
	CN float64
	HK float64
}

// DefaultRates are used when live lookups are disabled.
var DefaultRates = Rates{US: 0.08, CN: 0.06, HK: 0.08}

// Snapshot is one reading of every risk-free rate.
type Snapshot struct {
	RiskFreeUS float64
	RiskFreeCN float64
	RiskFreeHK float64
	Live       bool
	TakenAt    time.Time
}

// Service reads macro data, live or fixed.
type Service struct {
	series SeriesSource
	yields YieldSource
	fixed  *Rates
	cache  *infra.Cache
	logger zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFixedRates disables live lookups.
func WithFixedRates(r Rates) Option {
	return func(s *Service) { s.fixed = &r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCacheTTL sets how long live readings are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = infra.NewCache(ttl)
		}
	}
}

// New creates a Service reading FRED series and the HKMA yield.
func New(series SeriesSource, yields YieldSource, opts ...Option) *Service {
	s := &Service{
		series: series,
		yields: yields,
		cache:  infra.NewCache(time.Hour),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RiskFree returns the risk-free rate of country as a fraction.
func (s *Service) RiskFree(ctx context.Context, country string) (float64, error) {
	country = strings.ToLower(country)
	if s.fixed != nil {
		switch country {
		case US:
			return s.fixed.US, nil
		case CN:
			return s.fixed.CN, nil
		case HK:
			return s.fixed.HK, nil
		}
		return 0, fmt.Errorf("%w: risk-free rate for %q", ErrNotAvailable, country)
	}

	key := "riskfree:" + country
	if v, ok := s.cache.Get(key); ok {
		return v.(float64), nil
	}

	var (
		v   float64
		err error
	)
	switch country {
	case US:
		v, err = s.latest(ctx, fred.SeriesUSTreasury10Y)
	case CN:
		v, err = s.latest(ctx, fred.SeriesCNDiscountRate)
	case HK:
		if s.yields == nil {
			return 0, fmt.Errorf("%w: no HK yield source", ErrNotAvailable)
		}
		var y hkma.Yield
		y, err = s.yields.TenYearYield(ctx)
		v = y.Value
	default:
		return 0, fmt.Errorf("%w: risk-free rate for %q", ErrNotAvailable, country)
	}
	if err != nil {
		return 0, fmt.Errorf("risk-free %s: %w", country, err)
	}
	s.cache.Set(key, v)
	return v, nil
}

// Inflation returns expected inflation. Only the US is covered.
func (s *Service) Inflation(ctx context.Context, country string) (float64, error) {
	if strings.ToLower(country) != US || s.fixed != nil {
		return 0, fmt.Errorf("%w: inflation for %q", ErrNotAvailable, country)
	}
	return s.latest(ctx, fred.SeriesUSBreakeven10Y)
}

func (s *Service) latest(ctx context.Context, seriesID string) (float64, error) {
	if s.series == nil {
		return 0, fmt.Errorf("%w: no series source", ErrNotAvailable)
	}
	obs, err := s.series.Latest(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	return obs.Value, nil
}

// Snapshot reads the us, cn and hk rates concurrently.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Live: s.fixed == nil, TakenAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	for country, dst := range map[string]*float64{
		US: &snap.RiskFreeUS,
		CN: &snap.RiskFreeCN,
		HK: &snap.RiskFreeHK,
	} {
		g.Go(func() error {
			v, err := s.RiskFree(gctx, country)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	s.logger.Info().
		Float64("us", snap.RiskFreeUS).
		Float64("cn", snap.RiskFreeCN).
		Float64("hk", snap.RiskFreeHK).
		Bool("live", snap.Live).
		Msg("macro snapshot")
	return snap, nil
}
