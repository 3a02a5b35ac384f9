// Package hkma reads the Hong Kong government 10-year benchmark bond yield
// from the HKMA open API.
package hkma

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/smartvalue/internal/infra"
)

const (
	defaultBaseURL = "https://api.hkma.gov.hk"
	bondYieldPath  = "/public/market-data-and-statistics/monthly-statistical-bulletin/gov-bond/instit-bond-price-yield-daily"
)

// ErrNoRecord is returned when the response carries no 10-year yield.
var ErrNoRecord = errors.New("hkma: no 10-year yield record")

// Yield is the latest 10-year benchmark yield as a fraction.
type Yield struct {
	Date  time.Time
	Value float64
}

// Client queries the HKMA API.
type Client struct {
	http    *infra.Client
	baseURL string
}

// New creates a client. An empty baseURL selects the public API.
func New(hc *infra.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// TenYearYield returns the most recent daily benchmark yield. Records are
// listed newest first.
func (c *Client) TenYearYield(ctx context.Context) (Yield, error) {
	body, err := c.http.Get(ctx, c.baseURL+bondYieldPath, map[string]string{
		"segment": "Benchmark",
		"offset":  "0",
	})
	if err != nil {
		return Yield{}, fmt.Errorf("hkma: %w", err)
	}
	body, err = infra.RepairJSON(body)
	if err != nil {
		return Yield{}, fmt.Errorf("hkma: %w", err)
	}

	doc := gjson.ParseBytes(body)
	if ok := doc.Get("header.success"); ok.Exists() && !ok.Bool() {
		return Yield{}, fmt.Errorf("hkma: %s", doc.Get("header.err_msg").String())
	}
	rec := doc.Get("result.records.0")
	v := rec.Get("ind_pricing_10y")
	if v.Type != gjson.Number {
		return Yield{}, ErrNoRecord
	}
	d, _ := time.Parse(time.DateOnly, rec.Get("end_of_day").String())
	return Yield{Date: d, Value: v.Float() / 100}, nil
}
