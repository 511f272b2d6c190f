package cct

// RoundCompleteLabel replaces the stop control label once the round has ended.
const RoundCompleteLabel = "Round Complete"

// CardView is the participant-facing representation of one slot.
// Kind and Value are only set once the card is revealed.
type CardView struct {
	Position int    `json:"position"`
	State    string `json:"state"`
	Kind     string `json:"kind,omitempty"`
	Value    *int   `json:"value,omitempty"`
	Disabled bool   `json:"disabled"`
}

// StopControl is the "end round" button.
type StopControl struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// TrialView is everything a participant surface needs to draw the trial.
type TrialView struct {
	Points            int         `json:"points"`
	Cards             []CardView  `json:"cards"`
	Stop              StopControl `json:"stop"`
	Phase             string      `json:"phase"`
	ImmediateFeedback bool        `json:"immediateFeedback"`
}

// View builds the render model for the current state. Face-down cards do not expose their value.
func (t *Trial) View() TrialView {
	t.mu.Lock()
	defer t.mu.Unlock()

	cards := make([]CardView, len(t.deck))
	for i, card := range t.deck {
		cv := CardView{
			Position: card.Position,
			State:    "hidden",
			Disabled: t.ended,
		}
		if t.revealed[i] {
			v := card.Value
			cv.State = "revealed"
			cv.Value = &v
			cv.Disabled = true
			if card.IsLoss {
				cv.Kind = "loss"
			} else {
				cv.Kind = "gain"
			}
		}
		cards[i] = cv
	}

	stop := StopControl{Label: t.cfg.StopButtonLabel}
	phase := Active
	if t.ended {
		stop = StopControl{Label: RoundCompleteLabel, Disabled: true}
		phase = Ended
	}

	return TrialView{
		Points:            t.total,
		Cards:             cards,
		Stop:              stop,
		Phase:             phase.String(),
		ImmediateFeedback: t.cfg.ImmediateFeedback,
	}
}
