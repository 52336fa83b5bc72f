// Package collection holds the in-memory record set of one screen session.
// Records keep insertion order, which is the default display order. Every
// write replaces a record wholesale; callers never receive a reference into
// the store's own state.
package collection

import (
	"fmt"
	"sync"
	"time"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Store is an ordered set of records with unique IDs. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []types.Record
	index   map[string]int // record ID -> position in records
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of UpdatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		index: make(map[string]int),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns a copy of the record with the given ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if absent.
func (s *Store) Get(id string) (types.Record, error) {
	if id == "" {
		return types.Record{}, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return types.Record{}, fmt.Errorf("record %s: %w", id, types.ErrNotFound)
	}
	return s.records[i].Clone(), nil
}

// Upsert merges patch over the record with the given ID, stamps UpdatedAt,
// and replaces the stored record. Returns the new record.
// Returns ErrNotFound if id is absent and a validation error if the patch
// is malformed; the store is untouched in both cases.
func (s *Store) Upsert(id string, patch types.Patch) (types.Record, error) {
	if id == "" {
		return types.Record{}, types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return types.Record{}, fmt.Errorf("record %s: %w", id, types.ErrNotFound)
	}
	updated, err := patch.Apply(s.records[i], s.now())
	if err != nil {
		return types.Record{}, fmt.Errorf("patching record %s: %w", id, err)
	}
	s.records[i] = updated
	return updated.Clone(), nil
}

// Insert appends a new record. Returns ErrInvalidID if the ID is empty and
// ErrDuplicateID if it is already present.
func (s *Store) Insert(r types.Record) error {
	if r.ID == "" {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[r.ID]; ok {
		return fmt.Errorf("record %s: %w", r.ID, types.ErrDuplicateID)
	}
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r.Clone())
	return nil
}

// Swap replaces the stored record with next if it still equals expected,
// keeping its position. It reports whether the swap happened. A record
// that is gone or has changed since expected was read is left alone.
func (s *Store) Swap(expected, next types.Record) bool {
	if expected.ID != next.ID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[expected.ID]
	if !ok || !s.records[i].Equal(expected) {
		return false
	}
	s.records[i] = next.Clone()
	return true
}

// Remove deletes the record with the given ID and returns it.
// Returns ErrNotFound if absent.
func (s *Store) Remove(id string) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return types.Record{}, fmt.Errorf("record %s: %w", id, types.ErrNotFound)
	}
	removed := s.records[i]

	records := make([]types.Record, 0, len(s.records)-1)
	records = append(records, s.records[:i]...)
	records = append(records, s.records[i+1:]...)
	s.records = records
	s.index = indexOf(records)
	return removed, nil
}

// ReplaceAll swaps the whole record set, as after a server refresh.
// The input is checked for empty and duplicate IDs first; on error the
// store keeps its previous contents.
func (s *Store) ReplaceAll(records []types.Record) error {
	next := make([]types.Record, len(records))
	index := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record at position %d: %w", i, types.ErrInvalidID)
		}
		if _, dup := index[r.ID]; dup {
			return fmt.Errorf("record %s: %w", r.ID, types.ErrDuplicateID)
		}
		index[r.ID] = i
		next[i] = r.Clone()
	}

	s.mu.Lock()
	s.records, s.index = next, index
	s.mu.Unlock()
	return nil
}

func indexOf(records []types.Record) map[string]int {
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	return index
}
