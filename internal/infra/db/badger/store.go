// Package badger stores records and chat history in an embedded Badger
// database. Facet slots live under their own keys so their bytes are kept
// exactly as written.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/chat"
)

const (
	maxConflictRetries = 32
	seqBandwidth       = 100
)

// InMemoryImageLimit is the largest raw image an in-memory database can keep
// inline in a record. In-memory Badger caps every value at 1 MiB and a
// data: URL is a third larger than the image.
const InMemoryImageLimit = 512 << 10

// Store implements analysis.Repository and chat.Repository.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens a database at path, or an in-memory one when path is empty.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence([]byte("seq/chat"), seqBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("chat sequence: %w", err)
	}
	return &Store{db: db, seq: seq}, nil
}

func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

func recordKey(id analysis.ID) []byte { return []byte("rec/" + string(id)) }

func facetKey(id analysis.ID, f analysis.Facet) []byte {
	return []byte("facet/" + string(id) + "/" + string(f))
}

func chatPrefix(id analysis.ID) []byte { return []byte("chat/" + string(id) + "/") }

func (s *Store) Create(_ context.Context, r *analysis.Record) error {
	base := r.Clone()
	for _, f := range analysis.Facets {
		base.SetFacetData(f, nil)
	}
	b, err := json.Marshal(base)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recordKey(r.ID)); err == nil {
			return fmt.Errorf("record %s already exists", r.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(recordKey(r.ID), b); err != nil {
			return err
		}
		for _, f := range analysis.Facets {
			if data := r.FacetData(f); data != nil {
				if err := txn.Set(facetKey(r.ID, f), data); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) Get(_ context.Context, id analysis.ID) (*analysis.Record, error) {
	var r analysis.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return analysis.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &r) }); err != nil {
			return err
		}
		for _, f := range analysis.Facets {
			data, err := getCopy(txn, facetKey(id, f))
			if err != nil {
				return err
			}
			r.SetFacetData(f, data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SetFacet(_ context.Context, id analysis.ID, f analysis.Facet, data json.RawMessage, overwrite bool) (json.RawMessage, error) {
	for i := 0; ; i++ {
		var stored json.RawMessage
		err := s.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(recordKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
				return analysis.ErrNotFound
			} else if err != nil {
				return err
			}
			cur, err := getCopy(txn, facetKey(id, f))
			if err != nil {
				return err
			}
			if cur != nil && !overwrite {
				stored = cur
				return nil
			}
			stored = append(json.RawMessage(nil), data...)
			return txn.Set(facetKey(id, f), stored)
		})
		if errors.Is(err, badger.ErrConflict) && i < maxConflictRetries {
			continue
		}
		if err != nil {
			return nil, err
		}
		return stored, nil
	}
}

func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database closed")
	}
	return nil
}

func (s *Store) Append(_ context.Context, m *chat.Message) error {
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("chat sequence: %w", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	key := append(chatPrefix(m.AnalysisID), []byte(fmt.Sprintf("%020d", n))...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, b)
	})
}

func (s *Store) History(_ context.Context, id analysis.ID) ([]*chat.Message, error) {
	out := []*chat.Message{}
	prefix := chatPrefix(id)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m chat.Message
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &m) }); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// getCopy returns the value at key, or nil when the key is absent.
func getCopy(txn *badger.Txn, key []byte) (json.RawMessage, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
