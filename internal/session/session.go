// internal/session/session.go
//
// Session is the host for one player's game.
// Responsibilities:
//   - Own the single mutable game.State and feed it events (flip, restart, tick).
//   - Schedule the effects returned by the engine and fire them later.
//   - Run the one-second countdown tick while the round is running.
//   - Publish a game.View to subscribers and to the persistence hook after
//     every change.
//
// Notes:
//   - All events, timer callbacks included, run under mu, so the state sees a
//     single logical execution context.
//   - Effects carry the epoch they were produced in and the engine drops stale
//     ones; the tick carries a generation so a tick from a stopped ticker is
//     ignored too.
//   - Close cancels every pending callback; nothing fires on a closed session.

package session

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcards/internal/clock"
	"github.com/robalobadob/flipcards/internal/game"
)

// ErrClosed is returned for events sent to a closed session.
var ErrClosed = errors.New("session closed")

// ChangeFunc observes every committed state. It runs under the session lock
// and must not call back into the session.
type ChangeFunc func(id string, st game.State)

// Options configures a Session. Zero values use the wall clock, a randomly
// seeded generator and no change hook.
type Options struct {
	Clock    clock.Clock
	Rand     *rand.Rand
	OnChange ChangeFunc
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// Session serializes all events for one game.
type Session struct {
	id   string
	opts Options

	mu         sync.Mutex
	state      game.State
	version    uint64
	closed     bool
	lastActive time.Time

	ticker  clock.Timer
	tickGen uint64

	nextTimer uint64
	pending   map[uint64]clock.Timer

	subs map[chan game.View]struct{}
}

// New starts a fresh round with a newly generated deck.
func New(id string, opts Options) *Session {
	opts = opts.withDefaults()
	return start(id, opts, game.New(game.NewDeck(opts.Rand)))
}

// Restore resumes a session from a stored snapshot. Effects that were pending
// when the snapshot was taken are gone, so the snapshot is normalized first.
func Restore(id string, st game.State, opts Options) *Session {
	opts = opts.withDefaults()
	return start(id, opts, game.Recover(st, game.NewDeck(opts.Rand)))
}

func start(id string, opts Options, st game.State) *Session {
	s := &Session{
		id:         id,
		opts:       opts,
		state:      st,
		lastActive: opts.Clock.Now(),
		pending:    make(map[uint64]clock.Timer),
		subs:       make(map[chan game.View]struct{}),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(st, nil)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// View returns the current view.
func (s *Session) View() game.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// State returns a copy of the current state.
func (s *Session) State() game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Cards = append(game.Deck(nil), st.Cards...)
	return st
}

// LastActive reports when the player last sent an event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Flip requests the card at index be opened. Invalid requests leave the state
// unchanged and still return the current view.
func (s *Session) Flip(index int) (game.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return game.View{}, ErrClosed
	}
	s.lastActive = s.opts.Clock.Now()
	next, effects := game.Flip(s.state, index)
	if sameCards(next.Cards, s.state.Cards) {
		log.Debug().Str("session", s.id).Int("index", index).Msg("flip ignored")
		return s.viewLocked(), nil
	}
	s.commitLocked(next, effects)
	return s.viewLocked(), nil
}

// Restart closes all cards and deals a new round after game.DealDelay.
func (s *Session) Restart() (game.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return game.View{}, ErrClosed
	}
	s.lastActive = s.opts.Clock.Now()
	next, effects := game.Restart(s.state)
	log.Debug().Str("session", s.id).Uint64("epoch", next.Epoch).Msg("restart")
	s.commitLocked(next, effects)
	return s.viewLocked(), nil
}

// Subscribe returns a channel receiving the view after every change, starting
// with the current one. Slow readers only see the latest view. cancel must be
// called to release the subscription.
func (s *Session) Subscribe() (<-chan game.View, func()) {
	ch := make(chan game.View, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	ch <- s.viewLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Close stops the ticker, cancels pending effects and ends all subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTickerLocked()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

// commitLocked installs next, schedules effects, starts or stops the ticker
// to follow next.Running, and publishes.
func (s *Session) commitLocked(next game.State, effects []game.Effect) {
	wasRunning := s.ticker != nil
	s.state = next
	s.version++

	for _, e := range effects {
		s.scheduleLocked(e)
	}
	switch {
	case next.Running && !wasRunning:
		s.startTickerLocked()
	case !next.Running && wasRunning:
		s.stopTickerLocked()
	}
	s.publishLocked()
}

func (s *Session) scheduleLocked(e game.Effect) {
	s.nextTimer++
	id := s.nextTimer
	s.pending[id] = s.opts.Clock.AfterFunc(e.After, func() {
		s.fire(id, e)
	})
}

func (s *Session) fire(id uint64, e game.Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok || s.closed {
		return
	}
	delete(s.pending, id)

	if e.Epoch != s.state.Epoch {
		log.Debug().Str("session", s.id).Stringer("effect", e.Kind).
			Uint64("epoch", e.Epoch).Uint64("current", s.state.Epoch).Msg("stale effect dropped")
		return
	}
	var deck game.Deck
	if e.Kind == game.EffectDeal {
		deck = game.NewDeck(s.opts.Rand)
	}
	s.commitLocked(game.Fire(s.state, e, deck), nil)
}

func (s *Session) startTickerLocked() {
	s.tickGen++
	s.armTickLocked(s.tickGen)
}

func (s *Session) armTickLocked(gen uint64) {
	s.ticker = s.opts.Clock.AfterFunc(game.TickInterval, func() {
		s.tick(gen)
	})
}

func (s *Session) stopTickerLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.tickGen++
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.tickGen {
		return
	}
	next := game.Tick(s.state)
	if next.Running {
		s.armTickLocked(gen)
	}
	s.commitLocked(next, nil)
}

func (s *Session) viewLocked() game.View {
	v := s.state.View()
	v.Version = s.version
	return v
}

func (s *Session) publishLocked() {
	v := s.viewLocked()
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			// Drop the stale view and replace it with the latest.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
	if s.opts.OnChange != nil {
		st := s.state
		st.Cards = append(game.Deck(nil), st.Cards...)
		s.opts.OnChange(s.id, st)
	}
}

func sameCards(a, b game.Deck) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
