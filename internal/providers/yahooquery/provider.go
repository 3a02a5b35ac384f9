// Package yahooquery implements the "yq" statement source over Yahoo's
// fundamentals-timeseries API. Line items arrive under their canonical
// names prefixed with the frequency ("quarterlyTotalAssets"), one series
// per request type, each ordered oldest first.
package yahooquery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/smartvalue/internal/infra"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/providers/yahoo"
	"github.com/seenimoa/smartvalue/pkg/models"
)

const (
	providerName   = "yq"
	defaultBaseURL = "https://query2.finance.yahoo.com"

	// lookback bounds the timeseries window.
	lookback = 6 * 365 * 24 * time.Hour
)

// Provider implements provider.Provider over the timeseries API.
type Provider struct {
	provider.BaseProvider
	session *yahoo.Session
	baseURL string
	now     func() time.Time
}

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// New creates a yahooquery provider using session for all requests.
func New(session *yahoo.Session, opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Yahoo Finance fundamentals timeseries",
			"https://finance.yahoo.com",
			provider.OldestFirst,
			nil,
		),
		session: session,
		baseURL: defaultBaseURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ping checks connectivity to Yahoo Finance.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.session.Crumb(ctx); err != nil {
		return fmt.Errorf("yq ping: %w", err)
	}
	return nil
}

// FetchStatements downloads the quarterly balance sheet, the annual income
// statement and the annual cash flow, then the intro info. Tables are
// returned newest first.
func (p *Provider) FetchStatements(ctx context.Context, ticker string) (*models.Statements, error) {
	bs, err := p.statement(ctx, ticker, models.KindBalanceSheet, "quarterly")
	if err != nil {
		return nil, err
	}
	is, err := p.statement(ctx, ticker, models.KindIncomeStatement, "annual")
	if err != nil {
		return nil, err
	}
	cf, err := p.statement(ctx, ticker, models.KindCashFlow, "annual")
	if err != nil {
		return nil, err
	}
	if bs.NumPeriods() == 0 && is.NumPeriods() == 0 && cf.NumPeriods() == 0 {
		return nil, provider.NewDataUnavailable(providerName, ticker, "no timeseries data")
	}

	intro, err := p.intro(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if !intro.MostRecentQuarter.Valid && bs.NumPeriods() > 0 {
		intro.MostRecentQuarter.SetValid(bs.Periods[0])
	}

	return &models.Statements{
		Ticker:          ticker,
		Source:          providerName,
		BalanceSheet:    bs,
		IncomeStatement: is,
		CashFlow:        cf,
		Intro:           intro,
	}, nil
}

// getJSON fetches url and returns the parsed payload. A body that is not a
// complete JSON document is a retryable provider error.
func (p *Provider) getJSON(ctx context.Context, ticker, url string, params map[string]string) (gjson.Result, error) {
	q, err := p.session.Query(ctx, params)
	if err != nil {
		return gjson.Result{}, provider.NewProviderError(providerName, ticker, err)
	}
	body, err := p.session.Client().GetWithHeaders(ctx, url, q, map[string]string{"Accept": "application/json"})
	if err != nil {
		if se, ok := asStatus(err); ok && se.StatusCode == http.StatusUnauthorized {
			p.session.Reset()
		}
		return gjson.Result{}, provider.Classify(providerName, ticker, err)
	}
	if err := infra.ValidateJSON(body); err != nil {
		return gjson.Result{}, provider.NewProviderError(providerName, ticker, err)
	}
	return gjson.ParseBytes(body), nil
}
