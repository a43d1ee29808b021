package dataset

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marinad-syro/inferra/pkg/table"
)

// NotFoundError is returned when a dataset id is not in the store.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %q not found", e.ID)
}

// Info describes a stored dataset.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
}

type entry struct {
	name      string
	tbl       *table.Table
	createdAt time.Time
}

// Store holds loaded datasets in memory, keyed by generated id.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Add stores a table under a fresh id and returns the id.
func (s *Store) Add(name string, tbl *table.Table) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry{name: name, tbl: tbl, createdAt: time.Now()}
	return id
}

// Get returns a copy of the stored table so callers can mutate freely.
func (s *Store) Get(id string) (*table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return e.tbl.Clone(), nil
}

// Replace swaps the stored table for an existing id.
func (s *Store) Replace(id string, tbl *table.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	e.tbl = tbl
	return nil
}

// Delete removes a dataset. Unknown ids are a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// List returns descriptions of all stored datasets, oldest first.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, Info{
			ID:        id,
			Name:      e.name,
			Rows:      e.tbl.Len(),
			Columns:   e.tbl.Columns(),
			CreatedAt: e.createdAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
