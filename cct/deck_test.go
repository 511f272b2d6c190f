package cct

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
)

func TestNewDeck(t *testing.T) {
	cfg := DefaultConfig()
	deck, err := NewDeck(cfg, nil)
	if err != nil {
		t.Fatalf("NewDeck: %v", err)
	}

	if len(deck) != cfg.NumCards {
		t.Fatalf("expected %d cards, got %d", cfg.NumCards, len(deck))
	}

	for i, card := range deck {
		if card.Position != i {
			t.Errorf("expected card[%d].Position=%d, got %d", i, i, card.Position)
		}
		if card.IsLoss && card.Value != cfg.LossValue {
			t.Errorf("loss card %d has value %d, want %d", i, card.Value, cfg.LossValue)
		}
		if !card.IsLoss && card.Value != cfg.GainValue {
			t.Errorf("gain card %d has value %d, want %d", i, card.Value, cfg.GainValue)
		}
	}
}

func TestNewDeckLossCount(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tests := []struct {
		numCards, numLoss int
	}{
		{32, 3},
		{4, 1},
		{4, 0},
		{4, 4},
		{1, 1},
		{0, 0},
		{10, 5},
	}

	for _, test := range tests {
		cfg := DefaultConfig()
		cfg.NumCards = test.numCards
		cfg.NumLossCards = test.numLoss
		for i := 0; i < 50; i++ {
			deck, err := NewDeck(cfg, rng)
			if err != nil {
				t.Fatalf("NewDeck(%d, %d): %v", test.numCards, test.numLoss, err)
			}
			if got := deck.LossCount(); got != test.numLoss {
				t.Fatalf("NewDeck(%d, %d) has %d loss cards", test.numCards, test.numLoss, got)
			}
			if len(deck.LossPositions()) != test.numLoss {
				t.Fatalf("LossPositions length %d, want %d", len(deck.LossPositions()), test.numLoss)
			}
		}
	}
}

func TestNewDeckInvalidConfig(t *testing.T) {
	tests := []struct {
		name              string
		numCards, numLoss int
	}{
		{"more loss than cards", 4, 5},
		{"negative loss", 4, -1},
		{"negative cards", -1, 0},
		{"deck too large", MaxNumCards + 1, 0},
		{"huge deck", math.MaxInt, 3},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.NumCards = test.numCards
			cfg.NumLossCards = test.numLoss

			_, err := NewDeck(cfg, nil)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigurationError, got %T", err)
			}
			if cfgErr.NumCards != test.numCards || cfgErr.NumLossCards != test.numLoss {
				t.Errorf("error carries %d/%d, want %d/%d", cfgErr.NumCards, cfgErr.NumLossCards, test.numCards, test.numLoss)
			}
		})
	}
}

func TestNewDeckSeededIsReproducible(t *testing.T) {
	cfg := DefaultConfig()
	a, _ := NewDeck(cfg, rand.New(rand.NewSource(7)))
	b, _ := NewDeck(cfg, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("decks from the same seed differ at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

// With 4 cards and 2 loss cards there are 6 loss patterns. Each must show up
// with frequency indistinguishable from uniform.
func TestShuffleUniformity(t *testing.T) {
	const draws = 60000
	// chi-square critical value for 5 degrees of freedom at p=0.001
	const critical = 20.515

	cfg := DefaultConfig()
	cfg.NumCards = 4
	cfg.NumLossCards = 2
	rng := rand.New(rand.NewSource(20240601))

	counts := make(map[int]int)
	for i := 0; i < draws; i++ {
		deck, err := NewDeck(cfg, rng)
		if err != nil {
			t.Fatal(err)
		}
		mask := 0
		for _, p := range deck.LossPositions() {
			mask |= 1 << p
		}
		counts[mask]++
	}

	if len(counts) != 6 {
		t.Fatalf("expected 6 distinct loss patterns, got %d: %v", len(counts), counts)
	}

	expected := float64(draws) / 6
	chi := 0.0
	for _, observed := range counts {
		d := float64(observed) - expected
		chi += d * d / expected
	}
	if chi > critical {
		t.Errorf("chi-square %.2f exceeds %.3f; counts %v", chi, critical, counts)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.NumLossCards = cfg.NumCards
	if err := cfg.Validate(); err != nil {
		t.Errorf("all-loss deck should be valid: %v", err)
	}
	cfg.NumLossCards = cfg.NumCards + 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for num_loss_cards > num_cards")
	}

	cfg = DefaultConfig()
	cfg.NumCards = MaxNumCards
	if err := cfg.Validate(); err != nil {
		t.Errorf("deck of MaxNumCards should be valid: %v", err)
	}
	cfg.NumCards = MaxNumCards + 1
	err := cfg.Validate()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration above MaxNumCards, got %v", err)
	}
	if !strings.Contains(err.Error(), "num_cards=1025 must be between 0 and 1024") {
		t.Errorf("unexpected message %q", err)
	}
}
