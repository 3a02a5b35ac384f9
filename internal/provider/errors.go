package provider

import (
	"errors"
	"fmt"

	"github.com/seenimoa/smartvalue/internal/infra"
)

// Sentinels for providers that return neither a result nor an error.
// Classify turns them into a retryable ProviderError.
var (
	ErrNoStatements = errors.New("provider returned no statements")
	ErrNoQuote      = errors.New("provider returned no quote")
)

// DataUnavailableError means the source has no data for the ticker: the
// symbol is unknown or delisted. Retrying will not help.
type DataUnavailableError struct {
	Provider string
	Ticker   string
	Reason   string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s: no data for %s: %s", e.Provider, e.Ticker, e.Reason)
}

// ProviderError is any other failure of the source: timeouts, throttling,
// auth failures, malformed payloads. It is considered transient.
type ProviderError struct {
	Provider string
	Ticker   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Provider, e.Ticker, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewDataUnavailable builds a *DataUnavailableError.
func NewDataUnavailable(providerName, ticker, reason string) error {
	return &DataUnavailableError{Provider: providerName, Ticker: ticker, Reason: reason}
}

// NewProviderError builds a *ProviderError wrapping err.
func NewProviderError(providerName, ticker string, err error) error {
	return &ProviderError{Provider: providerName, Ticker: ticker, Err: err}
}

// IsDataUnavailable reports whether err is, or wraps, a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var du *DataUnavailableError
	return errors.As(err, &du)
}

// IsRetryable reports whether err should be retried. Only ProviderError is.
func IsRetryable(err error) bool {
	if err == nil || IsDataUnavailable(err) {
		return false
	}
	var pe *ProviderError
	return errors.As(err, &pe)
}

// Classify maps a raw fetch failure onto the error taxonomy. Errors that
// are already classified pass through; a 404 from the source means the
// ticker is unknown; everything else is a ProviderError.
func Classify(providerName, ticker string, err error) error {
	if err == nil {
		return nil
	}
	var du *DataUnavailableError
	if errors.As(err, &du) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	var se *infra.StatusError
	if errors.As(err, &se) && se.NotFound() {
		return NewDataUnavailable(providerName, ticker, fmt.Sprintf("status %d", se.StatusCode))
	}
	return NewProviderError(providerName, ticker, err)
}
