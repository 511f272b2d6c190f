package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cct-server/cct"
	"cct-server/storage"
	"cct-server/trialerrors"
)

// archiveTimeout bounds a single result write.
const archiveTimeout = 5 * time.Second

// ResultSink receives finished trial records. Optional; may be nil.
type ResultSink interface {
	InsertTrialResult(ctx context.Context, rec storage.TrialRecord) error
}

// Manager starts sessions and tracks the ones still running.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	wg       sync.WaitGroup

	sink      ResultSink
	trialOpts []cct.Option
}

// NewManager creates a Manager. sink may be nil, in which case results are not archived.
func NewManager(sink ResultSink, opts ...cct.Option) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		sink:      sink,
		trialOpts: opts,
	}
}

// Start deals a new trial for the participant and runs its session loop.
// Messages for the participant are written to send.
func (m *Manager) Start(participantID string, cfg cct.Config, send chan []byte) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, trialerrors.ErrShuttingDown
	}

	s, err := newSession(uuid.NewString(), participantID, cfg, send, m.trialOpts...)
	if err != nil {
		return nil, err
	}
	s.OnFinish = m.archive
	m.sessions[s.ID] = s

	slog.Info("trial started", "tag", "session", "trial", s.ID, "participant", participantID,
		"cards", cfg.NumCards, "lossCards", cfg.NumLossCards, "hot", cfg.Hot)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.Run()
		m.remove(s.ID)
	}()
	return s, nil
}

// Get returns the running session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, trialerrors.ErrTrialNotFound
	}
	return s, nil
}

// Active returns the number of running sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Abandon stops a running session without recording a result.
func (m *Manager) Abandon(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Submit(Action{Type: ActionAbandon})
}

// Shutdown refuses new trials, abandons running ones and waits for their
// loops and pending archive writes to finish or ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	running := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		running = append(running, s)
	}
	m.mu.Unlock()

	for _, s := range running {
		_ = s.Submit(Action{Type: ActionAbandon})
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// archive runs on the session goroutine after the trial has ended.
func (m *Manager) archive(rec storage.TrialRecord) {
	if m.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := m.sink.InsertTrialResult(ctx, rec); err != nil {
		slog.Error("archiving trial result", "tag", "session", "trial", rec.ID, "err", err)
	}
}
