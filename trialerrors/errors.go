package trialerrors

import "errors"

// Session sentinel errors. Used by both session and ws packages
// to avoid circular imports.
var (
	ErrTrialNotFound    = errors.New("trial not found")
	ErrTrialActive      = errors.New("a trial is already running on this connection")
	ErrNoActiveTrial    = errors.New("no active trial for this connection")
	ErrNotAuthenticated = errors.New("participant is not authenticated")
	ErrShuttingDown     = errors.New("server is shutting down")
)
