package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	colorA = "rgb(1, 1, 1)"
	colorB = "rgb(2, 2, 2)"
	colorC = "rgb(3, 3, 3)"
)

func deckOf(colors ...string) Deck {
	d := make(Deck, len(colors))
	for i, c := range colors {
		d[i] = Card{Color: c}
	}
	return d
}

func flipAll(t *testing.T, s State, indices ...int) (State, []Effect) {
	t.Helper()
	var effects []Effect
	for _, i := range indices {
		var eff []Effect
		s, eff = Flip(s, i)
		effects = append(effects, eff...)
	}
	return s, effects
}

func TestNew(t *testing.T) {
	s := New(deckOf(colorA, colorA))
	assert.Equal(t, RoundSeconds, s.Timer)
	assert.True(t, s.Running)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, MessagePlay, s.Message)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestFlip_Rejected(t *testing.T) {
	base := New(deckOf(colorA, colorB, colorA, colorB))
	opened, _ := Flip(base, 0)

	tests := []struct {
		name  string
		state State
		index int
	}{
		{"negative index", base, -1},
		{"index past end", base, 4},
		{"already open", opened, 0},
		{"locked", func() State { s := base; s.Locked = true; return s }(), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effects := Flip(tt.state, tt.index)
			assert.Equal(t, tt.state, next)
			assert.Empty(t, effects)
		})
	}
}

func TestFlip_DoesNotMutateInput(t *testing.T) {
	s := New(deckOf(colorA, colorB, colorA, colorB))
	before := append(Deck(nil), s.Cards...)
	next, _ := Flip(s, 2)
	assert.Equal(t, before, s.Cards)
	assert.True(t, next.Cards[2].Open)
	assert.True(t, next.Cards[2].Exposed)
	assert.Equal(t, PhaseOnePending, next.Phase())
}

func TestMatch(t *testing.T) {
	s := New(deckOf(colorA, colorB, colorA, colorB))
	s, effects := flipAll(t, s, 0, 2)

	assert.Empty(t, effects)
	assert.Equal(t, MatchBonus, s.Score)
	assert.True(t, s.Cards[0].Open)
	assert.True(t, s.Cards[2].Open)
	assert.False(t, s.Cards[0].Exposed)
	assert.False(t, s.Cards[2].Exposed)
	assert.False(t, s.Locked)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestMismatch_NoPriorExposure(t *testing.T) {
	// [A,B,A,B]: flip A then B.
	s := New(deckOf(colorA, colorB, colorA, colorB))
	s, effects := flipAll(t, s, 0, 1)

	require.Len(t, effects, 1)
	eff := effects[0]
	assert.Equal(t, EffectSettleMismatch, eff.Kind)
	assert.Equal(t, SettleDelay, eff.After)
	assert.Equal(t, [2]int{0, 1}, eff.Pair)
	assert.False(t, eff.Penalize)
	assert.True(t, s.Locked)
	assert.Equal(t, PhaseResolving, s.Phase())

	// No third card while resolving.
	blocked, more := Flip(s, 2)
	assert.Equal(t, s, blocked)
	assert.Empty(t, more)

	s = Fire(s, eff, nil)
	assert.False(t, s.Cards[0].Open)
	assert.False(t, s.Cards[1].Open)
	assert.True(t, s.Cards[0].Exposed, "closed cards remember they were seen")
	assert.Equal(t, 0, s.Score)
	assert.False(t, s.Locked)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestMismatch_KnownPairPenalized(t *testing.T) {
	s := New(deckOf(colorA, colorB, colorA, colorB, colorC, colorC))

	// See A at 0 and B at 1, then let them close.
	s, effects := flipAll(t, s, 0, 1)
	s = Fire(s, effects[0], nil)

	// Open A at 2: its partner at 0 was seen, so the match is known.
	s, effects = Flip(s, 2)
	assert.Empty(t, effects)
	assert.True(t, s.MatchKnown)

	// Miss anyway.
	s, effects = Flip(s, 4)
	require.Len(t, effects, 1)
	assert.True(t, effects[0].Penalize)
	s = Fire(s, effects[0], nil)
	assert.Equal(t, -KnownPenalty, s.Score)
	assert.False(t, s.MatchKnown)
}

func TestMatchKnown_UnseenPartner(t *testing.T) {
	s := New(deckOf(colorA, colorB, colorA, colorB))
	s, _ = Flip(s, 0)
	assert.False(t, s.MatchKnown)
}

func TestRoundComplete_FourCards(t *testing.T) {
	// [A,A,B,B]
	s := New(deckOf(colorA, colorA, colorB, colorB))
	s, effects := flipAll(t, s, 0, 1)
	assert.Empty(t, effects)
	assert.Equal(t, 20, s.Score)

	s = Tick(s)
	s = Tick(s)
	remaining := s.Timer

	s, effects = flipAll(t, s, 2, 3)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectStopCountdown, effects[0].Kind)
	assert.Equal(t, CompleteDelay, effects[0].After)

	assert.Equal(t, 20+20+RoundBonus+remaining, s.Score)
	assert.Equal(t, 1, s.Round)
	assert.True(t, s.Completed)
	assert.True(t, s.Running, "countdown stops only after the completion delay")
	assert.Equal(t, PhaseRoundComplete, s.Phase())
	assert.Equal(t, "Final score: 178 (bonus 138)", s.Message)

	s = Fire(s, effects[0], nil)
	assert.False(t, s.Running)
}

func TestRoundComplete_FullDeck(t *testing.T) {
	deck := make(Deck, 0, DeckSize)
	for i := 0; i < Pairs; i++ {
		c := string(rune('a' + i))
		deck = append(deck, Card{Color: c}, Card{Color: c})
	}
	s := New(deck)
	for i := 0; i < DeckSize; i++ {
		s, _ = Flip(s, i)
	}
	assert.Equal(t, Pairs*MatchBonus+RoundBonus+RoundSeconds, s.Score)
	assert.Equal(t, 1, s.Round)
}

func TestTick(t *testing.T) {
	s := New(deckOf(colorA, colorA))
	s = Tick(s)
	assert.Equal(t, RoundSeconds-1, s.Timer)

	s.Timer = 1
	s = Tick(s)
	assert.Equal(t, 0, s.Timer)
	assert.False(t, s.Running)
	assert.Equal(t, MessageTimeUp, s.Message)

	stopped := Tick(s)
	assert.Equal(t, s, stopped)
}

func TestRestart(t *testing.T) {
	s := New(deckOf(colorA, colorA, colorB, colorB))
	s, _ = flipAll(t, s, 0, 1, 2)
	s.Round = 3

	s, effects := Restart(s)
	for _, c := range s.Cards {
		assert.False(t, c.Open)
		assert.False(t, c.Exposed)
	}
	assert.True(t, s.Locked)
	assert.False(t, s.Running)
	assert.Equal(t, PhaseDealing, s.Phase())
	require.Len(t, effects, 1)
	assert.Equal(t, EffectDeal, effects[0].Kind)
	assert.Equal(t, DealDelay, effects[0].After)

	blocked, _ := Flip(s, 0)
	assert.Equal(t, s, blocked)

	next := deckOf(colorC, colorC)
	s = Fire(s, effects[0], next)
	assert.Equal(t, next, s.Cards)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, RoundSeconds, s.Timer)
	assert.True(t, s.Running)
	assert.False(t, s.Locked)
	assert.Equal(t, 3, s.Round)
	assert.Equal(t, MessagePlay, s.Message)
}

func TestFire_StaleEpochIgnored(t *testing.T) {
	s := New(deckOf(colorA, colorB, colorA, colorB))
	s, effects := flipAll(t, s, 0, 1)
	require.Len(t, effects, 1)
	mismatch := effects[0]

	s, deals := Restart(s)
	s = Fire(s, deals[0], deckOf(colorC, colorC, colorB, colorB))

	// The settle scheduled before restart must not touch the new deck.
	s, _ = Flip(s, 0)
	after := Fire(s, mismatch, nil)
	assert.Equal(t, s, after)
	assert.True(t, after.Cards[0].Open)
}

func TestFire_DoubleRestartDealsOnce(t *testing.T) {
	s := New(deckOf(colorA, colorA))
	s, first := Restart(s)
	s, second := Restart(s)

	s = Fire(s, first[0], deckOf(colorB, colorB))
	assert.Equal(t, PhaseDealing, s.Phase())

	s = Fire(s, second[0], deckOf(colorC, colorC))
	assert.Equal(t, colorC, s.Cards[0].Color)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestRecover(t *testing.T) {
	t.Run("unresolved mismatch closes without penalty", func(t *testing.T) {
		s := New(deckOf(colorA, colorB, colorA, colorB))
		s, _ = flipAll(t, s, 0, 1)
		s.MatchKnown = true
		epoch := s.Epoch

		s = Recover(s, nil)
		assert.False(t, s.Cards[0].Open)
		assert.False(t, s.Cards[1].Open)
		assert.Equal(t, 0, s.Score)
		assert.False(t, s.Locked)
		assert.Equal(t, epoch+1, s.Epoch)
	})
	t.Run("pending deal completes", func(t *testing.T) {
		s := New(deckOf(colorA, colorA))
		s, _ = Restart(s)
		s = Recover(s, deckOf(colorB, colorB))
		assert.Equal(t, colorB, s.Cards[0].Color)
		assert.True(t, s.Running)
	})
	t.Run("completed round stops countdown", func(t *testing.T) {
		s := New(deckOf(colorA, colorA))
		s, _ = flipAll(t, s, 0, 1)
		require.True(t, s.Running)
		s = Recover(s, nil)
		assert.False(t, s.Running)
		assert.Equal(t, PhaseRoundComplete, s.Phase())
	})
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{120, "02:00"},
		{119, "01:59"},
		{61, "01:01"},
		{9, "00:09"},
		{0, "00:00"},
		{-3, "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCountdown(tt.in))
	}
}

func TestView(t *testing.T) {
	s := New(deckOf(colorA, colorB, colorA, colorB))
	s, _ = Flip(s, 1)
	v := s.View()
	assert.Equal(t, "02:00", v.Countdown)
	assert.Equal(t, PhaseOnePending, v.Phase)
	assert.Len(t, v.Cards, 4)

	v.Cards[1].Open = false
	assert.True(t, s.Cards[1].Open, "view cards are a copy")
}
