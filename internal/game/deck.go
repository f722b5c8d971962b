package game

import (
	"math/rand/v2"

	"github.com/robalobadob/flipcards/internal/palette"
)

// NewDeck deals Pairs colors twice each and shuffles them with r.
// rand.Shuffle is a Fisher-Yates permutation, so every order is equally likely.
func NewDeck(r *rand.Rand) Deck {
	colors := palette.Colors(r.Float64(), Pairs)
	deck := make(Deck, 0, len(colors)*2)
	for _, c := range colors {
		deck = append(deck, Card{Color: c}, Card{Color: c})
	}
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// fresh copies d with every card closed and unexposed.
func fresh(d Deck) Deck {
	out := make(Deck, len(d))
	for i, c := range d {
		out[i] = Card{Color: c.Color}
	}
	return out
}
