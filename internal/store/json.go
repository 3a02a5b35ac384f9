package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seenimoa/smartvalue/pkg/models"
)

// fileSuffix names per-ticker files "<TICKER>_data.json".
const fileSuffix = "_data.json"

// JSONStore writes one indented JSON file per ticker into a directory.
type JSONStore struct {
	dir string
}

// NewJSONStore creates dir if needed and returns a store over it.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return &JSONStore{dir: dir}, nil
}

// Path returns the file a ticker's record is stored in.
func (s *JSONStore) Path(ticker string) string {
	return filepath.Join(s.dir, ticker+fileSuffix)
}

// Put writes rec, replacing the file atomically.
func (s *JSONStore) Put(ctx context.Context, rec *models.CompanyRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.Ticker(), err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path(rec.Ticker()))
}

// Get reads the record of ticker.
func (s *JSONStore) Get(ctx context.Context, ticker string) (*models.CompanyRecord, error) {
	data, err := os.ReadFile(s.Path(ticker))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rec models.CompanyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ticker, err)
	}
	return &rec, nil
}

// List returns every stored record ordered by ticker.
func (s *JSONStore) List(ctx context.Context) ([]*models.CompanyRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var tickers []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		tickers = append(tickers, strings.TrimSuffix(name, fileSuffix))
	}
	sort.Strings(tickers)

	out := make([]*models.CompanyRecord, 0, len(tickers))
	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.Get(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *JSONStore) Close() error { return nil }
