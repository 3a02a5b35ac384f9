// Package fmp implements the "fmp" statement source over the Financial
// Modeling Prep v3 REST API with API key authentication.
//
// Free tier: 250 requests/day.
// Docs: https://financialmodelingprep.com/developer/docs
package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seenimoa/smartvalue/internal/infra"
	"github.com/seenimoa/smartvalue/internal/provider"
)

const (
	providerName   = "fmp"
	defaultBaseURL = "https://financialmodelingprep.com/api/v3"
	credAPIKey     = "api_key"
)

// Provider implements provider.Provider for FMP.
type Provider struct {
	provider.BaseProvider
	client  *infra.Client
	baseURL string
	apiKey  string
}

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// New creates an FMP provider. Init must be called with the API key
// before use.
func New(client *infra.Client, opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Financial Modeling Prep statements",
			"https://financialmodelingprep.com",
			provider.NewestFirst,
			[]provider.ProviderCredential{
				{
					Name:        credAPIKey,
					Description: "FMP API key from financialmodelingprep.com",
					Required:    true,
					EnvVar:      "FMP_API_KEY",
				},
			},
		),
		client:  client,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init stores the API key.
func (p *Provider) Init(credentials map[string]string) error {
	if err := p.BaseProvider.Init(credentials); err != nil {
		return err
	}
	p.apiKey = credentials[credAPIKey]
	return nil
}

// Ping checks connectivity and the API key.
func (p *Provider) Ping(ctx context.Context) error {
	var out []fmpQuote
	if err := p.get(ctx, "/quote/AAPL", nil, &out); err != nil {
		return fmt.Errorf("fmp ping: %w", err)
	}
	return nil
}

// get calls path with the API key injected and decodes the JSON body.
func (p *Provider) get(ctx context.Context, path string, query map[string]string, dest any) error {
	q := make(map[string]string, len(query)+1)
	for k, v := range query {
		q[k] = v
	}
	q["apikey"] = p.apiKey

	body, err := p.client.GetWithHeaders(ctx, p.baseURL+path, q, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if b := bytes.TrimSpace(body); len(b) > 0 && b[0] == '{' {
		var e fmpError
		if json.Unmarshal(b, &e) == nil && e.Message != "" {
			return fmt.Errorf("fmp: %s", e.Message)
		}
	}
	return infra.DecodeJSON(body, dest)
}
