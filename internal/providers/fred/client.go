// Package fred reads the latest observation of FRED (Federal Reserve
// Economic Data) series. Values are published in percent and returned as
// fractions.
//
// Requires a free API key from https://fred.stlouisfed.org/docs/api/api_key.html
// Rate limit: 120 requests/minute.
package fred

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/smartvalue/internal/infra"
)

const defaultBaseURL = "https://api.stlouisfed.org/fred"

// Series used for the macro inputs.
const (
	SeriesUSTreasury10Y   = "DGS10"         // US 10-year treasury yield
	SeriesCNDiscountRate  = "INTDSRCNM193N" // China discount rate
	SeriesUSBreakeven10Y  = "T10YIE"        // US 10-year breakeven inflation
	observationSampleSize = "10"
)

// ErrNoObservation is returned when a series has no usable value in the
// sampled window.
var ErrNoObservation = errors.New("fred: no observation")

// Observation is one dated value of a series, as a fraction.
type Observation struct {
	SeriesID string
	Date     time.Time
	Value    float64
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Client queries the FRED API.
type Client struct {
	http    *infra.Client
	apiKey  string
	baseURL string
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// New creates a client authenticated with apiKey.
func New(hc *infra.Client, apiKey string, opts ...Option) *Client {
	c := &Client{http: hc, apiKey: apiKey, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest returns the most recent non-missing observation of seriesID.
// FRED marks missing values with ".".
func (c *Client) Latest(ctx context.Context, seriesID string) (Observation, error) {
	if c.apiKey == "" {
		return Observation{}, fmt.Errorf("fred %s: api key not set", seriesID)
	}
	var resp observationsResponse
	err := c.http.GetJSON(ctx, c.baseURL+"/series/observations", map[string]string{
		"series_id":  seriesID,
		"api_key":    c.apiKey,
		"file_type":  "json",
		"sort_order": "desc",
		"limit":      observationSampleSize,
	}, &resp)
	if err != nil {
		return Observation{}, fmt.Errorf("fred %s: %w", seriesID, err)
	}

	for _, o := range resp.Observations {
		if o.Value == "." || o.Value == "" {
			continue
		}
		pct, err := decimal.NewFromString(o.Value)
		if err != nil {
			continue
		}
		d, _ := time.Parse(time.DateOnly, o.Date)
		return Observation{
			SeriesID: seriesID,
			Date:     d,
			Value:    pct.Div(decimal.NewFromInt(100)).InexactFloat64(),
		}, nil
	}
	return Observation{}, fmt.Errorf("%w for %s", ErrNoObservation, seriesID)
}
