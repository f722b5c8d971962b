// internal/store/memory.go
//
// Session snapshot persistence.
// The session host saves a game.State after every transition so a session
// can be picked up again after the process restarts.
//
// Characteristics of the in-memory implementation:
//   - Snapshots keyed by session ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts; use the SQLite store when that matters.

package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/robalobadob/flipcards/internal/game"
)

// ErrNotFound is returned by Get for an unknown session ID.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for session snapshots.
type Store interface {
	// Save persists or replaces the snapshot for id.
	Save(ctx context.Context, id string, st game.State) error

	// Get retrieves the snapshot for id, or ErrNotFound.
	Get(ctx context.Context, id string) (game.State, error)

	// Delete removes the snapshot for id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu     sync.RWMutex          // guards states map
	states map[string]game.State // keyed by session ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{states: make(map[string]game.State)}
}

// Save stores a copy of st; later changes to the caller's cards are not seen.
func (m *memory) Save(ctx context.Context, id string, st game.State) error {
	st.Cards = slices.Clone(st.Cards)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = st
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[id]; ok {
		st.Cards = slices.Clone(st.Cards)
		return st, nil
	}
	return game.State{}, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}
