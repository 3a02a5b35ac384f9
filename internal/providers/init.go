// Package providers initializes and registers all concrete statement
// sources with a provider registry.
package providers

import (
	"github.com/rs/zerolog"

	"github.com/seenimoa/smartvalue/internal/config"
	"github.com/seenimoa/smartvalue/internal/infra"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/providers/fmp"
	"github.com/seenimoa/smartvalue/internal/providers/yahoo"
	"github.com/seenimoa/smartvalue/internal/providers/yahooquery"
	"github.com/seenimoa/smartvalue/internal/providers/yfinance"
)

// NewClient builds the shared HTTP client from the provider settings.
func NewClient(cfg config.ProvidersConfig, logger zerolog.Logger) *infra.Client {
	return infra.NewClient(
		infra.WithTimeout(cfg.Timeout),
		infra.WithRateLimit(cfg.RequestsPerSecond),
		infra.WithUserAgent(cfg.UserAgent),
		infra.WithLogger(logger),
	)
}

// RegisterAll registers every available provider with the global registry.
func RegisterAll(cfg *config.Config, logger zerolog.Logger) error {
	return RegisterAllTo(provider.Global(), cfg, logger)
}

// RegisterAllTo registers all available providers to the given registry
// and selects cfg.Collector.Source as the default. The two Yahoo sources
// share one client and session. FMP is only registered when its key is set.
func RegisterAllTo(reg *provider.Registry, cfg *config.Config, logger zerolog.Logger) error {
	client := NewClient(cfg.Providers, logger)
	session := yahoo.NewSession(client)

	// --- Yahoo (free, no API key) ---
	yq := yahooquery.New(session)
	if err := yq.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(yq); err != nil {
		return err
	}

	yf := yfinance.New(session)
	if err := yf.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(yf); err != nil {
		return err
	}

	// --- FMP (requires API key) ---
	if apiKey := cfg.Providers.FMPAPIKey; apiKey != "" {
		fp := fmp.New(client)
		if err := fp.Init(map[string]string{"api_key": apiKey}); err != nil {
			return err
		}
		if err := reg.Register(fp); err != nil {
			return err
		}
	}

	if cfg.Collector.Source != "" {
		return reg.SetDefault(cfg.Collector.Source)
	}
	return nil
}
