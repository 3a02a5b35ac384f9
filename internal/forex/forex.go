// Package forex converts between a company's report currency and the
// currency its shares trade in.
package forex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/smartvalue/internal/infra"
)

const (
	DefaultBaseURL  = "https://api.frankfurter.app"
	DefaultCacheTTL = time.Hour
)

// ErrRateUnavailable is returned when no rate exists for a currency pair.
var ErrRateUnavailable = errors.New("forex: rate unavailable")

// fixedRates covers pairs the rate service does not quote.
var fixedRates = map[[2]string]float64{
	{"HKD", "MOP"}: 0.97,
}

type latestResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Converter looks up exchange rates and caches them.
type Converter struct {
	http    *infra.Client
	baseURL string
	cache   *infra.Cache
}

// Option configures a Converter.
type Option func(*Converter)

// WithBaseURL overrides the rate service root.
func WithBaseURL(u string) Option {
	return func(c *Converter) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithCacheTTL sets how long a rate is reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Converter) {
		if ttl > 0 {
			c.cache = infra.NewCache(ttl)
		}
	}
}

// New creates a Converter.
func New(hc *infra.Client, opts ...Option) *Converter {
	c := &Converter{
		http:    hc,
		baseURL: DefaultBaseURL,
		cache:   infra.NewCache(DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rate returns how many units of to one unit of from buys. Equal
// currencies yield 1 without a lookup.
func (c *Converter) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return 0, fmt.Errorf("%w: empty currency (%q → %q)", ErrRateUnavailable, from, to)
	}
	if from == to {
		return 1, nil
	}
	if r, ok := fixedRates[[2]string{from, to}]; ok {
		return r, nil
	}

	key := from + "/" + to
	if v, ok := c.cache.Get(key); ok {
		return v.(float64), nil
	}

	var resp latestResponse
	err := c.http.GetJSON(ctx, c.baseURL+"/latest", map[string]string{"from": from, "to": to}, &resp)
	if err != nil {
		var se *infra.StatusError
		if errors.As(err, &se) && se.NotFound() {
			return 0, fmt.Errorf("%w: %s", ErrRateUnavailable, key)
		}
		return 0, fmt.Errorf("forex %s: %w", key, err)
	}
	r, ok := resp.Rates[to]
	if !ok || r <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrRateUnavailable, key)
	}
	c.cache.Set(key, r)
	return r, nil
}
