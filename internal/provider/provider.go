// Package provider implements the data-source abstraction layer. Every
// statement source implements Provider, returning the balance sheet, income
// statement and cash flow of one ticker already keyed by canonical field
// names. Providers are looked up by their short ID in a Registry.
package provider

import (
	"context"
	"fmt"

	"github.com/seenimoa/smartvalue/pkg/models"
)

// ProviderCredential describes a required credential for a provider.
type ProviderCredential struct {
	Name        string `json:"name"`        // e.g., "api_key"
	Description string `json:"description"` // e.g., "FMP API key from financialmodelingprep.com"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"` // environment variable name, e.g., "FMP_API_KEY"
}

// ColumnOrder is the order in which a source natively returns periods.
type ColumnOrder string

const (
	NewestFirst ColumnOrder = "newest_first"
	OldestFirst ColumnOrder = "oldest_first"
)

// ProviderInfo holds metadata about a registered provider.
type ProviderInfo struct {
	Name        string               `json:"name"`        // e.g., "yq", "yf", "fmp"
	Description string               `json:"description"` // human-readable description
	Website     string               `json:"website"`
	Credentials []ProviderCredential `json:"credentials"`
	NativeOrder ColumnOrder          `json:"native_order"`
}

// Provider is the interface that all statement sources implement.
type Provider interface {
	// Info returns metadata about this provider.
	Info() ProviderInfo

	// Init initializes the provider with credentials. Returns an error if
	// required credentials are missing.
	Init(credentials map[string]string) error

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error

	// FetchStatements returns the three statements and intro info of
	// ticker. Every table covers its kind's full canonical index; rows the
	// source did not ship are null. Failures are *DataUnavailableError or
	// *ProviderError.
	FetchStatements(ctx context.Context, ticker string) (*models.Statements, error)
}

// QuoteProvider is implemented by providers that can price a ticker.
type QuoteProvider interface {
	Quote(ctx context.Context, ticker string) (*models.Quote, error)
}

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}

// ErrCapabilityNotSupported is returned when a provider lacks an optional
// capability such as quoting.
type ErrCapabilityNotSupported struct {
	Provider   string
	Capability string
}

func (e *ErrCapabilityNotSupported) Error() string {
	return fmt.Sprintf("provider %q does not support %s", e.Provider, e.Capability)
}

// ErrInvalidCredentials is returned when provider credentials are invalid.
type ErrInvalidCredentials struct {
	Provider string
	Detail   string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for provider %q: %s", e.Provider, e.Detail)
}
