package session

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"cct-server/cct"
	"cct-server/storage"
	"cct-server/trialerrors"
)

func testConfig() cct.Config {
	return cct.Config{
		NumCards:        4,
		NumLossCards:    1,
		GainValue:       10,
		LossValue:       -250,
		StopButtonLabel: "END ROUND",
	}
}

func seeded() cct.Option {
	return cct.WithRand(rand.New(rand.NewSource(3)))
}

// fakeSink records archived results.
type fakeSink struct {
	mu      sync.Mutex
	records []storage.TrialRecord
	err     error
}

func (f *fakeSink) InsertTrialResult(_ context.Context, rec storage.TrialRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// decodeAll drains ch and returns each message as a generic map.
func decodeAll(t *testing.T, ch chan []byte) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for {
		select {
		case data := <-ch:
			var m map[string]interface{}
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("bad message %s: %v", data, err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func types(msgs []map[string]interface{}) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i], _ = m["type"].(string)
	}
	return out
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestSessionColdRound(t *testing.T) {
	send := make(chan []byte, 32)
	s, err := newSession("t1", "p1", testConfig(), send, seeded())
	if err != nil {
		t.Fatal(err)
	}
	var records []storage.TrialRecord
	s.OnFinish = func(rec storage.TrialRecord) { records = append(records, rec) }

	var gains []int
	for _, c := range s.Trial.Deck() {
		if !c.IsLoss {
			gains = append(gains, c.Position)
		}
	}

	s.Actions <- Action{Type: ActionReveal, Position: gains[0]}
	s.Actions <- Action{Type: ActionReveal, Position: gains[0]} // duplicate, ignored
	s.Actions <- Action{Type: ActionReveal, Position: gains[1]}
	s.Actions <- Action{Type: ActionEndRound}
	go s.Run()
	waitDone(t, s)

	got := types(decodeAll(t, send))
	want := []string{"trial_started", "trial_state", "trial_state", "trial_state", "trial_finished"}
	if len(got) != len(want) {
		t.Fatalf("expected messages %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.ID != "t1" || rec.ParticipantID != "p1" {
		t.Errorf("unexpected record identity %+v", rec)
	}
	if rec.Result.TotalPoints != 20 || rec.Result.Gain != 20 || rec.Result.LossHit {
		t.Errorf("unexpected result %+v", rec.Result)
	}
	if rec.EndedAt.Before(rec.StartedAt) {
		t.Error("EndedAt before StartedAt")
	}
}

// Reveals queued behind a hot-mode loss must never reach the trial.
func TestSessionHotModeQueuedReveals(t *testing.T) {
	cfg := testConfig()
	cfg.Hot = true
	send := make(chan []byte, 32)
	s, err := newSession("t2", "", cfg, send, seeded())
	if err != nil {
		t.Fatal(err)
	}
	finishes := 0
	s.OnFinish = func(storage.TrialRecord) { finishes++ }

	loss := s.Trial.Deck().LossPositions()[0]
	s.Actions <- Action{Type: ActionReveal, Position: loss}
	for p := 0; p < cfg.NumCards; p++ {
		s.Actions <- Action{Type: ActionReveal, Position: p}
	}
	s.Actions <- Action{Type: ActionEndRound}
	go s.Run()
	waitDone(t, s)

	msgs := decodeAll(t, send)
	got := types(msgs)
	want := []string{"trial_started", "trial_state", "trial_finished"}
	if len(got) != len(want) {
		t.Fatalf("expected messages %v, got %v", want, got)
	}
	if finishes != 1 {
		t.Errorf("expected 1 finish, got %d", finishes)
	}

	res := msgs[2]["result"].(map[string]interface{})
	if res["cards_turned"].(float64) != 1 || res["loss_hit"] != true || res["hot"] != true {
		t.Errorf("unexpected hot result %v", res)
	}
	view := msgs[1]["view"].(map[string]interface{})
	if view["phase"] != "ended" {
		t.Errorf("state after hot loss should be ended, got %v", view["phase"])
	}

	if err := s.Submit(Action{Type: ActionReveal, Position: 0}); !errors.Is(err, trialerrors.ErrNoActiveTrial) {
		t.Errorf("expected ErrNoActiveTrial after finish, got %v", err)
	}
}

func TestSessionAbandon(t *testing.T) {
	send := make(chan []byte, 32)
	s, err := newSession("t3", "", testConfig(), send, seeded())
	if err != nil {
		t.Fatal(err)
	}
	called := false
	s.OnFinish = func(storage.TrialRecord) { called = true }

	go s.Run()
	if err := s.Submit(Action{Type: ActionAbandon}); err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	if called {
		t.Error("abandoned trial should not be archived")
	}
	if !s.Closed() {
		t.Error("expected Closed() after abandon")
	}
	for _, typ := range types(decodeAll(t, send)) {
		if typ == "trial_finished" {
			t.Error("abandoned trial should not send trial_finished")
		}
	}
}

func TestNewSessionInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.NumLossCards = 10
	if _, err := newSession("t4", "", cfg, make(chan []byte, 1)); !errors.Is(err, cct.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestSubmitRejectedOnceTrialEnded(t *testing.T) {
	s, err := newSession("t5", "", testConfig(), make(chan []byte, 8), seeded())
	if err != nil {
		t.Fatal(err)
	}
	s.Trial.EndRound()

	if err := s.Submit(Action{Type: ActionReveal, Position: 0}); !errors.Is(err, trialerrors.ErrNoActiveTrial) {
		t.Errorf("expected ErrNoActiveTrial for reveal after end, got %v", err)
	}
	if err := s.Submit(Action{Type: ActionAbandon}); err != nil {
		t.Errorf("abandon should still be accepted, got %v", err)
	}
}

func TestManagerArchivesFinishedTrial(t *testing.T) {
	sink := &fakeSink{}
	m := NewManager(sink, seeded())
	send := make(chan []byte, 32)

	s, err := m.Start("p9", testConfig(), send)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := m.Get(s.ID); err != nil || got != s {
		t.Fatalf("Get(%s) = %v, %v", s.ID, got, err)
	}
	if err := s.Submit(Action{Type: ActionEndRound}); err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	deadline := time.Now().Add(2 * time.Second)
	for m.Active() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.Active() != 0 {
		t.Errorf("expected no active sessions, got %d", m.Active())
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 archived record, got %d", sink.count())
	}
	if sink.records[0].ParticipantID != "p9" || sink.records[0].Result.CardsTurned != 0 {
		t.Errorf("unexpected record %+v", sink.records[0])
	}
	if _, err := m.Get(s.ID); !errors.Is(err, trialerrors.ErrTrialNotFound) {
		t.Errorf("expected ErrTrialNotFound for finished trial, got %v", err)
	}
}

func TestManagerArchiveErrorIsLogged(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	m := NewManager(sink)
	s, err := m.Start("", testConfig(), make(chan []byte, 32))
	if err != nil {
		t.Fatal(err)
	}
	s.Submit(Action{Type: ActionEndRound})
	waitDone(t, s)
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sink.count() != 1 {
		t.Errorf("expected archive attempt, got %d", sink.count())
	}
}

func TestManagerStartInvalidConfig(t *testing.T) {
	m := NewManager(nil)
	cfg := testConfig()
	cfg.NumLossCards = -1
	if _, err := m.Start("", cfg, make(chan []byte, 1)); !errors.Is(err, cct.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if m.Active() != 0 {
		t.Error("failed start should not register a session")
	}
}

func TestManagerAbandonAndShutdown(t *testing.T) {
	sink := &fakeSink{}
	m := NewManager(sink)

	a, err := m.Start("", testConfig(), make(chan []byte, 32))
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Start("", testConfig(), make(chan []byte, 32))
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Abandon(a.ID); err != nil {
		t.Fatal(err)
	}
	waitDone(t, a)
	if err := m.Abandon("missing"); !errors.Is(err, trialerrors.ErrTrialNotFound) {
		t.Errorf("expected ErrTrialNotFound, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !b.Closed() {
		t.Error("shutdown should stop running sessions")
	}
	if sink.count() != 0 {
		t.Errorf("abandoned trials should not be archived, got %d", sink.count())
	}
	if _, err := m.Start("", testConfig(), make(chan []byte, 1)); !errors.Is(err, trialerrors.ErrShuttingDown) {
		t.Errorf("expected ErrShuttingDown, got %v", err)
	}
}
