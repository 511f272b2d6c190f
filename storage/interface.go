package storage

import "context"

// ResultStore abstracts persistence for trial results.
// Implementations can be swapped for testing (mocks) or different backends.
type ResultStore interface {
	InsertTrialResult(ctx context.Context, rec TrialRecord) error
	ListByParticipant(ctx context.Context, participantID string) ([]TrialRecord, error)
	Close()
}

// Ensure *Store implements ResultStore at compile time.
var _ ResultStore = (*Store)(nil)
