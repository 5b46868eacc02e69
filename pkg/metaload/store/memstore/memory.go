package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cognicore/metaload/pkg/metaload/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu       sync.RWMutex
	entities map[string]map[string]store.Entity // category -> cui -> entity
	commits  int
	inserts  int

	// FailInsert, when set, is consulted before every insert; a non-nil
	// result aborts the surrounding transaction.
	FailInsert func(e store.Entity) error
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{entities: make(map[string]map[string]store.Entity)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CountEntities implements store.Store.
func (s *Store) CountEntities(ctx context.Context, category string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entities[category])), nil
}

// WithTx stages inserts and applies them only if fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range tx.staged {
		byCUI := s.entities[e.Category]
		if byCUI == nil {
			byCUI = make(map[string]store.Entity)
			s.entities[e.Category] = byCUI
		}
		if _, exists := byCUI[e.CUI]; exists {
			continue
		}
		byCUI[e.CUI] = e
		s.inserts++
	}
	s.commits++
	return nil
}

type memTx struct {
	s      *Store
	staged []store.Entity
	seen   map[string]struct{}
}

func (t *memTx) InsertEntity(ctx context.Context, e store.Entity) (bool, error) {
	if e.Category == "" || e.CUI == "" {
		return false, errors.New("memstore: category and cui are required")
	}
	if t.s.FailInsert != nil {
		if err := t.s.FailInsert(e); err != nil {
			return false, err
		}
	}

	key := e.Category + "|" + e.CUI
	if _, dup := t.seen[key]; dup {
		return false, nil
	}
	t.s.mu.RLock()
	_, exists := t.s.entities[e.Category][e.CUI]
	t.s.mu.RUnlock()
	if exists {
		return false, nil
	}

	if t.seen == nil {
		t.seen = make(map[string]struct{})
	}
	t.seen[key] = struct{}{}
	t.staged = append(t.staged, e)
	return true, nil
}

// ListEntities implements store.Store, ordering by CUI.
func (s *Store) ListEntities(ctx context.Context, category string) ([]store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Entity, 0, len(s.entities[category]))
	for _, e := range s.entities[category] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CUI < out[j].CUI })
	return out, nil
}

// PurgeCategory implements store.Store.
func (s *Store) PurgeCategory(ctx context.Context, category string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.entities[category]))
	delete(s.entities, category)
	return n, nil
}

// Commits reports how many transactions were committed.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Inserts reports how many rows were written across all commits.
func (s *Store) Inserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inserts
}
