// Package memory keeps records and chat history in process memory. It is the
// default store and the reference for the persistent ones.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/chat"
)

// Store implements analysis.Repository and chat.Repository.
type Store struct {
	mu      sync.RWMutex
	records map[analysis.ID]*analysis.Record
	chats   map[analysis.ID][]*chat.Message
}

func New() *Store {
	return &Store{
		records: map[analysis.ID]*analysis.Record{},
		chats:   map[analysis.ID][]*chat.Message{},
	}
}

func (s *Store) Create(_ context.Context, r *analysis.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return fmt.Errorf("record %s already exists", r.ID)
	}
	s.records[r.ID] = r.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, id analysis.ID) (*analysis.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, analysis.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Store) SetFacet(_ context.Context, id analysis.ID, f analysis.Facet, data json.RawMessage, overwrite bool) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, analysis.ErrNotFound
	}
	if cur := r.FacetData(f); cur != nil && !overwrite {
		return append(json.RawMessage(nil), cur...), nil
	}
	stored := append(json.RawMessage(nil), data...)
	r.SetFacetData(f, stored)
	return append(json.RawMessage(nil), stored...), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Append(_ context.Context, m *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.chats[m.AnalysisID] = append(s.chats[m.AnalysisID], &cp)
	return nil
}

func (s *Store) History(_ context.Context, id analysis.ID) ([]*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.chats[id]
	out := make([]*chat.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}
