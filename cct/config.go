package cct

import (
	"errors"
	"fmt"
)

const (
	DefaultNumCards        = 32
	DefaultNumLossCards    = 3
	DefaultGainValue       = 10
	DefaultLossValue       = -250
	DefaultStopButtonLabel = "END ROUND"

	// MaxNumCards bounds the deck size a caller may request.
	MaxNumCards = 1024
)

// Config is the per-trial configuration supplied by the experiment.
// JSON names match the parameter names experiment pages already use.
type Config struct {
	NumCards          int    `json:"num_cards"`
	NumLossCards      int    `json:"num_loss_cards"`
	GainValue         int    `json:"gain_value"`
	LossValue         int    `json:"loss_value"`
	Hot               bool   `json:"hot"`
	ImmediateFeedback bool   `json:"immediate_feedback"`
	StopButtonLabel   string `json:"button_label_stop"`
}

// DefaultConfig returns the standard 32-card, 3-loss-card cold trial.
func DefaultConfig() Config {
	return Config{
		NumCards:        DefaultNumCards,
		NumLossCards:    DefaultNumLossCards,
		GainValue:       DefaultGainValue,
		LossValue:       DefaultLossValue,
		StopButtonLabel: DefaultStopButtonLabel,
	}
}

// ErrConfiguration matches any *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("invalid trial configuration")

// ConfigurationError reports a card count combination that cannot form a deck.
type ConfigurationError struct {
	NumCards     int
	NumLossCards int
}

func (e *ConfigurationError) Error() string {
	if e.NumCards < 0 || e.NumCards > MaxNumCards {
		return fmt.Sprintf("invalid trial configuration: num_cards=%d must be between 0 and %d", e.NumCards, MaxNumCards)
	}
	return fmt.Sprintf("invalid trial configuration: num_loss_cards=%d must be between 0 and num_cards=%d", e.NumLossCards, e.NumCards)
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Validate checks 0 <= NumLossCards <= NumCards <= MaxNumCards.
func (c Config) Validate() error {
	if c.NumCards < 0 || c.NumCards > MaxNumCards || c.NumLossCards < 0 || c.NumLossCards > c.NumCards {
		return &ConfigurationError{NumCards: c.NumCards, NumLossCards: c.NumLossCards}
	}
	return nil
}
