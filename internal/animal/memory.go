package animal

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository keeps animals in a map. Ids start at 1 and are never
// reused, like a BIGSERIAL column.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[int64]Animal
	nextID int64
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]Animal), nextID: 1}
}

var _ Repository = (*MemoryRepository)(nil)

// Create assigns the next id and stores a copy of a.
func (r *MemoryRepository) Create(_ context.Context, a Animal) (Animal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.ID = r.nextID
	r.nextID++
	r.byID[a.ID] = clone(a)

	return a, nil
}

// Get returns a copy of the animal with id, or ErrNotFound.
func (r *MemoryRepository) Get(_ context.Context, id int64) (Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return Animal{}, fmt.Errorf("animal %d: %w", id, ErrNotFound)
	}

	return clone(a), nil
}

// Update replaces the stored animal, keeping its original created_at.
func (r *MemoryRepository) Update(_ context.Context, a Animal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[a.ID]
	if !ok {
		return fmt.Errorf("animal %d: %w", a.ID, ErrNotFound)
	}

	a.CreatedAt = old.CreatedAt
	r.byID[a.ID] = clone(a)

	return nil
}

// Delete removes the animal with id, or returns ErrNotFound.
func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("animal %d: %w", id, ErrNotFound)
	}

	delete(r.byID, id)

	return nil
}

// ListByOwner returns copies of o's animals ordered by created_at, then id.
func (r *MemoryRepository) ListByOwner(_ context.Context, o Owner) ([]Animal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Animal

	for _, a := range r.byID {
		if a.Owner != nil && *a.Owner == o {
			out = append(out, clone(a))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}

		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// clone copies the pointer fields so callers cannot mutate stored rows.
func clone(a Animal) Animal {
	if a.Name != nil {
		name := *a.Name
		a.Name = &name
	}

	if a.Owner != nil {
		owner := *a.Owner
		a.Owner = &owner
	}

	return a
}
