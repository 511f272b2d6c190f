package cct

import (
	"math/rand"
)

// Card is a single card in the deck. Cards never change after the deck is built.
type Card struct {
	Position int
	IsLoss   bool
	Value    int
}

// Deck is the ordered, shuffled set of cards for one trial.
type Deck []Card

// NewDeck builds cfg.NumLossCards loss cards followed by the gain cards and
// shuffles them with Fisher-Yates. If rng is nil the package-level source is used.
func NewDeck(cfg Config, rng *rand.Rand) (Deck, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cards := make(Deck, cfg.NumCards)
	for i := range cards {
		if i < cfg.NumLossCards {
			cards[i] = Card{IsLoss: true, Value: cfg.LossValue}
		} else {
			cards[i] = Card{IsLoss: false, Value: cfg.GainValue}
		}
	}

	swap := func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	}
	if rng != nil {
		rng.Shuffle(len(cards), swap)
	} else {
		rand.Shuffle(len(cards), swap)
	}

	// Positions are assigned after the shuffle
	for i := range cards {
		cards[i].Position = i
	}

	return cards, nil
}

// LossCount returns how many loss cards the deck holds.
func (d Deck) LossCount() int {
	n := 0
	for _, c := range d {
		if c.IsLoss {
			n++
		}
	}
	return n
}

// LossPositions returns the positions of the loss cards in ascending order.
func (d Deck) LossPositions() []int {
	var out []int
	for _, c := range d {
		if c.IsLoss {
			out = append(out, c.Position)
		}
	}
	return out
}
