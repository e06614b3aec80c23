// Package memory provides an in-process todo repository. State lives only as
// long as the process and is not shared between replicas.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/jsamuelsen11/todo-service/internal/domain/todo"
	"github.com/jsamuelsen11/todo-service/internal/ports"
)

// Compile-time interface check.
var _ ports.TodoRepository = (*Store)(nil)

// Store is a mutex-guarded map of todos keyed by ID.
type Store struct {
	mu     sync.RWMutex
	items  map[int64]todo.Todo
	lastID int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{items: make(map[int64]todo.Todo)}
}

// Save updates the todo when its ID is already stored and inserts it with a
// new ID otherwise. The argument is never modified.
func (s *Store) Save(_ context.Context, item *todo.Todo) (*todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *item
	if _, ok := s.items[saved.ID]; !ok {
		s.lastID++
		saved.ID = s.lastID
	}
	s.items[saved.ID] = saved

	return &saved, nil
}

// FindAll returns a snapshot of all todos ordered by ID.
func (s *Store) FindAll(_ context.Context) ([]todo.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]todo.Todo, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b todo.Todo) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// DeleteByID removes the todo if present.
func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}
