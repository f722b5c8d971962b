// internal/game/types.go
//
// Core type definitions for the flip-cards game.
// Defines:
//   - Card: one face of the board (color key plus open/exposed flags).
//   - State: the whole round, transitioned only by the functions in engine.go.
//   - Phase: coarse state-machine position derived from State.
//   - Effect: a deferred transition the host must schedule.

package game

import "time"

// Game rules.
const (
	Pairs         = 8
	DeckSize      = Pairs * 2
	RoundSeconds  = 120
	MatchBonus    = 20
	RoundBonus    = 20
	KnownPenalty  = 5
	SettleDelay   = 500 * time.Millisecond
	CompleteDelay = 500 * time.Millisecond
	DealDelay     = 500 * time.Millisecond
	TickInterval  = time.Second
)

// Status messages.
const (
	MessagePlay    = "Match cards by color."
	MessageTimeUp  = "Time's up!"
	messageFinalFm = "Final score: %d (bonus %d)"
)

// Card is a single card. Two cards match iff their colors are equal.
type Card struct {
	Color   string `json:"color"`
	Open    bool   `json:"isOpen"`
	Exposed bool   `json:"isExposed"` // opened during the current resolution window
}

// Deck is the ordered list of cards for one round.
type Deck []Card

// State is a round snapshot. Cards is never modified in place: every
// transition returns a State holding a fresh slice.
type State struct {
	Cards      Deck   `json:"cards"`
	Score      int    `json:"score"`
	Timer      int    `json:"timer"` // seconds remaining
	Running    bool   `json:"running"`
	Round      int    `json:"round"` // completed rounds
	MatchKnown bool   `json:"isMatchKnown"`
	Locked     bool   `json:"locked"`
	Completed  bool   `json:"completed"`
	Dealing    bool   `json:"dealing"`
	Epoch      uint64 `json:"epoch"`
	Message    string `json:"message"`
}

// Phase is the state-machine position of a round.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseOnePending    Phase = "one-pending"
	PhaseTwoPending    Phase = "two-pending"
	PhaseResolving     Phase = "resolving"
	PhaseRoundComplete Phase = "round-complete"
	PhaseDealing       Phase = "dealing"
)

// EffectKind names a deferred transition.
type EffectKind int

const (
	EffectSettleMismatch EffectKind = iota
	EffectStopCountdown
	EffectDeal
)

func (k EffectKind) String() string {
	switch k {
	case EffectSettleMismatch:
		return "settle-mismatch"
	case EffectStopCountdown:
		return "stop-countdown"
	case EffectDeal:
		return "deal"
	default:
		return "unknown"
	}
}

// Effect is a transition to apply After a delay. Epoch is captured when the
// effect is produced; Fire ignores it once the round has been restarted.
type Effect struct {
	Kind     EffectKind
	After    time.Duration
	Epoch    uint64
	Pair     [2]int // mismatched card indices, EffectSettleMismatch only
	Penalize bool   // isMatchKnown at mismatch time, EffectSettleMismatch only
}
