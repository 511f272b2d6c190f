package session

import (
	"log/slog"
	"time"

	"cct-server/cct"
	"cct-server/storage"
	"cct-server/trialerrors"
	"cct-server/wsutil"
)

// ActionType enumerates the kinds of actions a session can process.
type ActionType int

const (
	ActionReveal   ActionType = iota
	ActionEndRound            // participant pressed the stop control
	ActionAbandon             // participant went away; close without a result
)

// Action represents a participant event sent into the session's action channel.
type Action struct {
	Type     ActionType
	Position int // card position (for ActionReveal)
}

// Session runs one trial for one participant. Events are applied one at a
// time by Run, so the trial sees them in arrival order.
type Session struct {
	ID            string
	ParticipantID string
	Trial         *cct.Trial
	StartedAt     time.Time
	Send          chan []byte

	Actions chan Action
	Done    chan struct{}

	// OnFinish is called once with the archived record when the trial ends. Not called on abandon.
	OnFinish func(storage.TrialRecord)

	finished chan cct.Result
	now      func() time.Time
}

func newSession(id, participantID string, cfg cct.Config, send chan []byte, opts ...cct.Option) (*Session, error) {
	s := &Session{
		ID:            id,
		ParticipantID: participantID,
		Send:          send,
		Actions:       make(chan Action, 64),
		Done:          make(chan struct{}),
		finished:      make(chan cct.Result, 1),
		now:           time.Now,
	}
	trial, err := cct.Start(cfg, func(res cct.Result) {
		s.finished <- res
	}, opts...)
	if err != nil {
		return nil, err
	}
	s.Trial = trial
	s.StartedAt = s.now()
	return s, nil
}

// Submit queues an action. It fails once the trial has ended or the session has stopped.
func (s *Session) Submit(a Action) error {
	select {
	case <-s.Done:
		return trialerrors.ErrNoActiveTrial
	default:
	}
	if a.Type != ActionAbandon && s.Trial.Phase() == cct.Ended {
		return trialerrors.ErrNoActiveTrial
	}
	select {
	case s.Actions <- a:
		return nil
	case <-s.Done:
		return trialerrors.ErrNoActiveTrial
	}
}

// Closed reports whether Run has returned.
func (s *Session) Closed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

// Run is the session loop. It processes actions sequentially until the
// trial ends or the session is abandoned. It should be run as a goroutine.
func (s *Session) Run() {
	defer close(s.Done)

	wsutil.SendJSON(s.Send, TrialStartedMsg{
		Type:    "trial_started",
		TrialID: s.ID,
		View:    s.Trial.View(),
	})

	for action := range s.Actions {
		switch action.Type {
		case ActionReveal:
			if s.Trial.RevealCard(action.Position) {
				s.broadcastState()
			}
		case ActionEndRound:
			if s.Trial.EndRound() {
				s.broadcastState()
			}
		case ActionAbandon:
			slog.Info("trial abandoned", "tag", "session", "trial", s.ID, "cards", len(s.Trial.Snapshot().ClickedPositions))
			return
		}

		select {
		case res := <-s.finished:
			s.finish(res)
			return
		default:
		}
	}
}

func (s *Session) broadcastState() {
	wsutil.SendJSON(s.Send, TrialStateMsg{
		Type: "trial_state",
		View: s.Trial.View(),
	})
}

func (s *Session) finish(res cct.Result) {
	rec := storage.TrialRecord{
		ID:            s.ID,
		ParticipantID: s.ParticipantID,
		StartedAt:     s.StartedAt,
		EndedAt:       s.now(),
		Config:        s.Trial.Config(),
		Result:        res,
	}

	wsutil.SendJSON(s.Send, TrialFinishedMsg{
		Type:    "trial_finished",
		TrialID: s.ID,
		Result:  res,
	})

	slog.Info("trial finished", "tag", "session", "trial", s.ID,
		"cards", res.CardsTurned, "points", res.TotalPoints, "loss", res.LossHit, "hot", res.Hot)

	if s.OnFinish != nil {
		s.OnFinish(rec)
	}
}
