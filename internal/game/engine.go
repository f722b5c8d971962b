// internal/game/engine.go
//
// Transition functions for a single flip-cards round.
// Responsibilities:
//   - Validate and apply flip requests.
//   - Detect match/mismatch once two cards are exposed.
//   - Apply the round-complete bonus when every card is open.
//   - Count the timer down on ticks.
//   - Sequence restarts (close cards, then deal a new deck).
//
// Notes:
//   - Every function takes a State by value and returns the next one; the host
//     owns the only mutable copy and feeds it events.
//   - Anything that must happen later is returned as an Effect for the host to
//     schedule. Effects carry the epoch they were produced in, and Restart bumps
//     the epoch, so a stale effect fired after a restart does nothing.

package game

import (
	"fmt"
	"slices"
)

// New starts a round on deck with the countdown running.
func New(deck Deck) State {
	return State{
		Cards:   fresh(deck),
		Timer:   RoundSeconds,
		Running: true,
		Message: MessagePlay,
	}
}

// Flip opens the card at index. The request is ignored while flips are locked,
// when index is out of range, or when the card is already open.
func Flip(s State, index int) (State, []Effect) {
	if s.Locked || index < 0 || index >= len(s.Cards) || s.Cards[index].Open {
		return s, nil
	}
	cards := slices.Clone(s.Cards)
	cards[index].Open = true
	cards[index].Exposed = true
	s.Cards = cards
	return evaluate(s)
}

// evaluate observes the deck after a card update and advances the match
// state machine.
func evaluate(s State) (State, []Effect) {
	var effects []Effect

	exposed := s.exposedOpen()
	switch len(exposed) {
	case 1:
		s.MatchKnown = s.pairSeen(exposed[0])
	case 2:
		a, b := exposed[0], exposed[1]
		s.Locked = true
		if s.Cards[a].Color == s.Cards[b].Color {
			cards := slices.Clone(s.Cards)
			cards[a].Exposed = false
			cards[b].Exposed = false
			s.Cards = cards
			s.Score += MatchBonus
			s.MatchKnown = false
			s.Locked = false
		} else {
			effects = append(effects, Effect{
				Kind:     EffectSettleMismatch,
				After:    SettleDelay,
				Epoch:    s.Epoch,
				Pair:     [2]int{a, b},
				Penalize: s.MatchKnown,
			})
		}
	}

	if !s.Completed && len(s.Cards) > 0 && s.openCount() == len(s.Cards) {
		bonus := s.Timer + RoundBonus
		s.Score += bonus
		s.Round++
		s.Completed = true
		s.Locked = true
		s.Message = fmt.Sprintf(messageFinalFm, s.Score, bonus)
		effects = append(effects, Effect{Kind: EffectStopCountdown, After: CompleteDelay, Epoch: s.Epoch})
	}
	return s, effects
}

// Tick counts the timer down by one second while it is running. At zero the
// countdown stops; the round itself stays playable.
func Tick(s State) State {
	if !s.Running {
		return s
	}
	s.Timer--
	if s.Timer <= 0 {
		s.Timer = 0
		s.Running = false
		if !s.Completed {
			s.Message = MessageTimeUp
		}
	}
	return s
}

// Restart closes every card and locks flips; the returned EffectDeal brings in
// the new deck. Restart bumps the epoch, which voids all earlier effects.
func Restart(s State) (State, []Effect) {
	cards := make(Deck, len(s.Cards))
	for i, c := range s.Cards {
		cards[i] = Card{Color: c.Color}
	}
	s.Cards = cards
	s.Epoch++
	s.Locked = true
	s.Dealing = true
	s.Running = false
	s.MatchKnown = false
	return s, []Effect{{Kind: EffectDeal, After: DealDelay, Epoch: s.Epoch}}
}

// Fire applies a previously returned effect. deck is only used by EffectDeal.
// Effects from an earlier epoch are dropped.
func Fire(s State, e Effect, deck Deck) State {
	if e.Epoch != s.Epoch {
		return s
	}
	switch e.Kind {
	case EffectSettleMismatch:
		return settle(s, e.Pair, e.Penalize)
	case EffectStopCountdown:
		s.Running = false
		return s
	case EffectDeal:
		if !s.Dealing {
			return s
		}
		return deal(s, deck)
	}
	return s
}

// Recover normalizes a state restored from storage, whose scheduled effects
// were lost with the process that produced them.
func Recover(s State, deck Deck) State {
	s.Epoch++
	switch {
	case s.Dealing:
		return deal(s, deck)
	case s.Completed:
		s.Running = false
		return s
	}
	if exposed := s.exposedOpen(); len(exposed) == 2 {
		s = settle(s, [2]int{exposed[0], exposed[1]}, false)
	}
	s.Locked = false
	return s
}

func settle(s State, pair [2]int, penalize bool) State {
	cards := slices.Clone(s.Cards)
	for _, i := range pair {
		if i >= 0 && i < len(cards) {
			cards[i].Open = false
		}
	}
	s.Cards = cards
	if penalize {
		s.Score -= KnownPenalty
	}
	s.MatchKnown = false
	s.Locked = false
	return s
}

func deal(s State, deck Deck) State {
	s.Cards = fresh(deck)
	s.Score = 0
	s.Timer = RoundSeconds
	s.Running = true
	s.Locked = false
	s.Completed = false
	s.Dealing = false
	s.MatchKnown = false
	s.Message = MessagePlay
	return s
}

// Phase reports where the round sits in the match state machine.
func (s State) Phase() Phase {
	if s.Dealing {
		return PhaseDealing
	}
	if len(s.Cards) > 0 && s.openCount() == len(s.Cards) {
		return PhaseRoundComplete
	}
	switch n := len(s.exposedOpen()); {
	case n >= 2 && s.Locked:
		return PhaseResolving
	case n >= 2:
		return PhaseTwoPending
	case n == 1:
		return PhaseOnePending
	default:
		return PhaseIdle
	}
}

func (s State) exposedOpen() []int {
	var out []int
	for i, c := range s.Cards {
		if c.Open && c.Exposed {
			out = append(out, i)
		}
	}
	return out
}

func (s State) openCount() int {
	n := 0
	for _, c := range s.Cards {
		if c.Open {
			n++
		}
	}
	return n
}

// pairSeen reports whether the partner of card i is closed but was exposed
// earlier, i.e. the player already saw where it is.
func (s State) pairSeen(i int) bool {
	for j, c := range s.Cards {
		if j != i && c.Color == s.Cards[i].Color && !c.Open && c.Exposed {
			return true
		}
	}
	return false
}
