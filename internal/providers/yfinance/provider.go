// Package yfinance implements the "yf" statement source over Yahoo
// Finance's v10 quoteSummary API: the quarterly balance sheet, the annual
// income statement and the annual cash flow, keyed by Yahoo's legacy line
// item names.
//
// Yahoo returns statement columns newest first.
package yfinance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/seenimoa/smartvalue/internal/infra"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/providers/yahoo"
)

const (
	providerName   = "yf"
	defaultBaseURL = "https://query1.finance.yahoo.com"
	defaultPageURL = "https://finance.yahoo.com"
)

// statementModules are requested in one quoteSummary call.
var statementModules = []string{
	"balanceSheetHistoryQuarterly",
	"incomeStatementHistory",
	"cashflowStatementHistory",
	"price",
	"assetProfile",
	"defaultKeyStatistics",
	"financialData",
	"quoteType",
}

// Provider implements provider.Provider for Yahoo Finance.
type Provider struct {
	provider.BaseProvider
	session *yahoo.Session
	baseURL string
	pageURL string
}

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithPageURL overrides the host of the HTML quote page.
func WithPageURL(u string) Option {
	return func(p *Provider) { p.pageURL = strings.TrimRight(u, "/") }
}

// New creates a YFinance provider using session for all requests.
func New(session *yahoo.Session, opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Yahoo Finance quoteSummary statements",
			"https://finance.yahoo.com",
			provider.NewestFirst,
			nil, // no credentials required
		),
		session: session,
		baseURL: defaultBaseURL,
		pageURL: defaultPageURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ping checks connectivity to Yahoo Finance.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.session.Crumb(ctx); err != nil {
		return fmt.Errorf("yf ping: %w", err)
	}
	return nil
}

// quoteSummary fetches the given modules for ticker.
func (p *Provider) quoteSummary(ctx context.Context, ticker string, modules []string) (*yfQuoteSummaryResult, error) {
	q, err := p.session.Query(ctx, map[string]string{
		"modules":    strings.Join(modules, ","),
		"corsDomain": "finance.yahoo.com",
	})
	if err != nil {
		return nil, provider.NewProviderError(providerName, ticker, err)
	}

	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s", p.baseURL, ticker)
	var resp yfQuoteSummaryResponse
	if err := p.session.Client().GetJSON(ctx, url, q, &resp); err != nil {
		var se *infra.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			p.session.Reset()
		}
		return nil, provider.Classify(providerName, ticker, err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, provider.NewDataUnavailable(providerName, ticker, e.Description)
		}
		return nil, provider.NewProviderError(providerName, ticker, fmt.Errorf("%s: %s", e.Code, e.Description))
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, provider.NewDataUnavailable(providerName, ticker, "empty quoteSummary result")
	}
	return &resp.QuoteSummary.Result[0], nil
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
