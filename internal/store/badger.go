package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/seenimoa/smartvalue/pkg/models"
)

var recordPrefix = []byte("record:")

// BadgerStore keeps records as JSON values in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database in dir. An empty dir
// opens an in-memory database.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func recordKey(ticker string) []byte {
	return append(append([]byte(nil), recordPrefix...), ticker...)
}

func (s *BadgerStore) Put(ctx context.Context, rec *models.CompanyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.Ticker(), err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.Ticker()), data)
	})
}

func (s *BadgerStore) Get(ctx context.Context, ticker string) (*models.CompanyRecord, error) {
	var rec models.CompanyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(ticker))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every record ordered by ticker (badger iterates keys in
// byte order).
func (s *BadgerStore) List(ctx context.Context) ([]*models.CompanyRecord, error) {
	var out []*models.CompanyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(recordPrefix); it.ValidForPrefix(recordPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := new(models.CompanyRecord)
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) Close() error { return s.db.Close() }
