package cct

import (
	"math/rand"
	"sync"
)

// Phase is the trial's position in its two-state lifecycle.
type Phase int

const (
	Active Phase = iota
	Ended
)

// String returns the protocol string for a Phase.
func (p Phase) String() string {
	switch p {
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Result is the data record handed to the finish callback when the round ends.
type Result struct {
	CardsTurned       int   `json:"cards_turned"`
	Outcome           int   `json:"outcome"`
	Loss              int   `json:"loss"`
	Gain              int   `json:"gain"`
	CardsClicked      []int `json:"cards_clicked"`
	TotalPoints       int   `json:"total_points"`
	LossHit           bool  `json:"loss_hit"`
	Hot               bool  `json:"hot"`
	ImmediateFeedback bool  `json:"immediate_feedback"`
}

// FinishFunc receives the trial result. It is called exactly once per trial.
type FinishFunc func(Result)

// State is a copy of the mutable trial state.
type State struct {
	ClickedPositions []int
	TotalPoints      int
	LossEncountered  bool
	Ended            bool
}

// Option customizes a trial at start.
type Option func(*Trial)

// WithRand shuffles the deck with rng instead of the package-level source.
func WithRand(rng *rand.Rand) Option {
	return func(t *Trial) {
		t.rng = rng
	}
}

// Trial is one run of the card task. All methods are safe for concurrent use;
// RevealCard and EndRound share one lock so reveals and termination never interleave.
type Trial struct {
	mu sync.Mutex

	cfg      Config
	deck     Deck
	rng      *rand.Rand
	onFinish FinishFunc

	clicked  []int
	revealed []bool
	total    int
	lossHit  bool
	ended    bool
	result   Result
}

// Start validates cfg, deals a shuffled deck and returns an active trial.
// onFinish may be nil.
func Start(cfg Config, onFinish FinishFunc, opts ...Option) (*Trial, error) {
	t := &Trial{
		cfg:      cfg,
		onFinish: onFinish,
	}
	for _, opt := range opts {
		opt(t)
	}

	deck, err := NewDeck(cfg, t.rng)
	if err != nil {
		return nil, err
	}
	t.deck = deck
	t.clicked = make([]int, 0, len(deck))
	t.revealed = make([]bool, len(deck))
	return t, nil
}

// Config returns the configuration the trial was started with.
func (t *Trial) Config() Config {
	return t.cfg
}

// Deck returns a copy of the dealt deck.
func (t *Trial) Deck() Deck {
	out := make(Deck, len(t.deck))
	copy(out, t.deck)
	return out
}

// RevealCard turns over the card at position. It reports whether the call
// changed anything; reveals after the round ended, of an already revealed card,
// or of a position outside the deck are ignored.
func (t *Trial) RevealCard(position int) bool {
	t.mu.Lock()
	if t.ended || position < 0 || position >= len(t.deck) || t.revealed[position] {
		t.mu.Unlock()
		return false
	}

	card := t.deck[position]
	t.revealed[position] = true
	t.clicked = append(t.clicked, position)
	t.total += card.Value
	if card.IsLoss {
		t.lossHit = true
	}

	// Hot rounds end on the first loss before another reveal can get the lock.
	var finished bool
	if t.cfg.Hot && card.IsLoss {
		finished = t.endLocked()
	}
	t.mu.Unlock()

	if finished {
		t.emit()
	}
	return true
}

// EndRound terminates the trial and emits its result. Calls after the first are no-ops.
// It reports whether this call ended the trial.
func (t *Trial) EndRound() bool {
	t.mu.Lock()
	finished := t.endLocked()
	t.mu.Unlock()

	if finished {
		t.emit()
	}
	return finished
}

func (t *Trial) endLocked() bool {
	if t.ended {
		return false
	}
	t.ended = true

	clicked := make([]int, len(t.clicked))
	copy(clicked, t.clicked)

	r := Result{
		CardsTurned:       len(clicked),
		Outcome:           t.total,
		CardsClicked:      clicked,
		TotalPoints:       t.total,
		LossHit:           t.lossHit,
		Hot:               t.cfg.Hot,
		ImmediateFeedback: t.cfg.ImmediateFeedback,
	}
	if t.lossHit {
		r.Loss = 1
	}
	if t.total > 0 {
		r.Gain = t.total
	}
	t.result = r
	return true
}

// emit runs outside the lock so the callback may read the trial.
func (t *Trial) emit() {
	if t.onFinish != nil {
		t.onFinish(t.resultCopy())
	}
}

func (t *Trial) resultCopy() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.result
	r.CardsClicked = make([]int, len(t.result.CardsClicked))
	copy(r.CardsClicked, t.result.CardsClicked)
	return r
}

// Phase returns Active until the round has ended.
func (t *Trial) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return Ended
	}
	return Active
}

// Result returns the emitted result, or false while the trial is still active.
func (t *Trial) Result() (Result, bool) {
	if t.Phase() != Ended {
		return Result{}, false
	}
	return t.resultCopy(), true
}

// Snapshot returns a copy of the current trial state.
func (t *Trial) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		ClickedPositions: append(make([]int, 0, len(t.clicked)), t.clicked...),
		TotalPoints:      t.total,
		LossEncountered:  t.lossHit,
		Ended:            t.ended,
	}
}
