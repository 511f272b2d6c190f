package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cct-server/cct"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS trial_result (
	id                 UUID PRIMARY KEY,
	participant_id     TEXT NOT NULL DEFAULT '',
	started_at         TIMESTAMPTZ NOT NULL,
	ended_at           TIMESTAMPTZ NOT NULL,
	num_cards          INT NOT NULL,
	num_loss_cards     INT NOT NULL,
	gain_value         INT NOT NULL,
	loss_value         INT NOT NULL,
	hot                BOOLEAN NOT NULL,
	immediate_feedback BOOLEAN NOT NULL,
	button_label_stop  TEXT NOT NULL DEFAULT '',
	cards_turned       INT NOT NULL,
	outcome            INT NOT NULL,
	loss               SMALLINT NOT NULL,
	gain               INT NOT NULL,
	cards_clicked      INT[] NOT NULL,
	total_points       INT NOT NULL,
	loss_hit           BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trial_result_participant ON trial_result(participant_id, ended_at DESC);
`

// TrialRecord is one finished trial as archived.
type TrialRecord struct {
	ID            string     `json:"trial_id"`
	ParticipantID string     `json:"participant_id,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       time.Time  `json:"ended_at"`
	Config        cct.Config `json:"config"`
	Result        cct.Result `json:"result"`
}

// Store persists and retrieves trial results.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the trial_result table exists.
// If databaseURL is empty, NewStore returns (nil, nil) and no persistence occurs.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// InsertTrialResult records a finished trial. rec.ID is the trial UUID.
func (s *Store) InsertTrialResult(ctx context.Context, rec TrialRecord) error {
	if s == nil || s.pool == nil {
		return nil
	}
	clicked := rec.Result.CardsClicked
	if clicked == nil {
		clicked = []int{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trial_result (id, participant_id, started_at, ended_at,
			num_cards, num_loss_cards, gain_value, loss_value, hot, immediate_feedback, button_label_stop,
			cards_turned, outcome, loss, gain, cards_clicked, total_points, loss_hit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		rec.ID, rec.ParticipantID, rec.StartedAt, rec.EndedAt,
		rec.Config.NumCards, rec.Config.NumLossCards, rec.Config.GainValue, rec.Config.LossValue,
		rec.Config.Hot, rec.Config.ImmediateFeedback, rec.Config.StopButtonLabel,
		rec.Result.CardsTurned, rec.Result.Outcome, rec.Result.Loss, rec.Result.Gain,
		clicked, rec.Result.TotalPoints, rec.Result.LossHit)
	return err
}

// ListByParticipant returns all trials of the participant, newest first.
func (s *Store) ListByParticipant(ctx context.Context, participantID string) ([]TrialRecord, error) {
	if s == nil || s.pool == nil {
		return []TrialRecord{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, participant_id, started_at, ended_at,
			num_cards, num_loss_cards, gain_value, loss_value, hot, immediate_feedback, button_label_stop,
			cards_turned, outcome, loss, gain, cards_clicked, total_points, loss_hit
		FROM trial_result
		WHERE participant_id = $1
		ORDER BY ended_at DESC`,
		participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TrialRecord{}
	for rows.Next() {
		var r TrialRecord
		var startedAt, endedAt time.Time
		if err := rows.Scan(&r.ID, &r.ParticipantID, &startedAt, &endedAt,
			&r.Config.NumCards, &r.Config.NumLossCards, &r.Config.GainValue, &r.Config.LossValue,
			&r.Config.Hot, &r.Config.ImmediateFeedback, &r.Config.StopButtonLabel,
			&r.Result.CardsTurned, &r.Result.Outcome, &r.Result.Loss, &r.Result.Gain,
			&r.Result.CardsClicked, &r.Result.TotalPoints, &r.Result.LossHit); err != nil {
			return nil, err
		}
		r.StartedAt = startedAt.UTC()
		r.EndedAt = endedAt.UTC()
		r.Result.Hot = r.Config.Hot
		r.Result.ImmediateFeedback = r.Config.ImmediateFeedback
		out = append(out, r)
	}
	return out, rows.Err()
}
