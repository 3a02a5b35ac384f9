// Package store persists CompanyRecords between the collection and export
// stages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seenimoa/smartvalue/pkg/models"
)

// ErrNotFound is returned by Get when no record exists for a ticker.
var ErrNotFound = errors.New("record not found")

// RecordStore keeps one record per ticker. Put replaces any earlier record
// of the same ticker.
type RecordStore interface {
	Put(ctx context.Context, rec *models.CompanyRecord) error
	Get(ctx context.Context, ticker string) (*models.CompanyRecord, error)
	List(ctx context.Context) ([]*models.CompanyRecord, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendBadger = "badger"
)

// Open opens the store selected by backend rooted at dir.
func Open(backend, dir string) (RecordStore, error) {
	switch strings.ToLower(backend) {
	case BackendJSON, "":
		return NewJSONStore(dir)
	case BackendBadger:
		return OpenBadger(dir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
