package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcards/internal/clock"
	"github.com/robalobadob/flipcards/internal/game"
	"github.com/robalobadob/flipcards/internal/store"
)

// ErrNotFound is returned by Manager.Get for an unknown session.
var ErrNotFound = errors.New("session not found")

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Store       store.Store
	Clock       clock.Clock
	IdleTimeout time.Duration     // live sessions idle this long are evicted
	NewRand     func() *rand.Rand // per-session generator; nil seeds randomly
}

// Manager owns the live sessions and their snapshots.
type Manager struct {
	opts ManagerOptions

	mu   sync.Mutex
	live map[string]*Session
}

// NewManager builds a Manager. A nil Store keeps snapshots in memory.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Manager{opts: opts, live: make(map[string]*Session)}
}

func (m *Manager) sessionOptions() Options {
	o := Options{Clock: m.opts.Clock, OnChange: m.persist}
	if m.opts.NewRand != nil {
		o.Rand = m.opts.NewRand()
	}
	return o
}

// Create starts a new session with a fresh deck.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	s := New(id, m.sessionOptions())

	m.mu.Lock()
	m.live[id] = s
	m.mu.Unlock()

	log.Info().Str("session", id).Msg("session created")
	return s, nil
}

// Get returns the live session for id, restoring it from the store if the
// process restarted since it was last used.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.live[id]; ok {
		return s, nil
	}

	st, err := m.opts.Store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	s := Restore(id, st, m.sessionOptions())
	m.live[id] = s
	log.Info().Str("session", id).Int("round", st.Round).Msg("session restored")
	return s, nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Evict closes sessions idle for longer than IdleTimeout and drops their
// snapshots. It returns how many were evicted.
func (m *Manager) Evict(ctx context.Context) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.opts.Clock.Now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.live {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, s)
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		if err := m.opts.Store.Delete(ctx, s.ID()); err != nil {
			log.Warn().Err(err).Str("session", s.ID()).Msg("delete snapshot")
		}
		log.Info().Str("session", s.ID()).Msg("session evicted")
	}
	return len(stale)
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Evict(ctx)
		}
	}
}

// Close closes every live session. Snapshots are kept so sessions can be
// restored by the next process.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.live {
		s.Close()
		delete(m.live, id)
	}
}

// persist saves a snapshot; failures are logged and otherwise ignored.
func (m *Manager) persist(id string, st game.State) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.opts.Store.Save(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("session", id).Msg("save snapshot")
	}
}
