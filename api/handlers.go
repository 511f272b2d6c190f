package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"cct-server/config"
	"cct-server/storage"
)

// ResultLister reads archived trials.
type ResultLister interface {
	ListByParticipant(ctx context.Context, participantID string) ([]storage.TrialRecord, error)
}

// TokenVerifier turns a bearer token into a participant id.
type TokenVerifier interface {
	ParticipantFromToken(token string) (string, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Config   *config.Config
	Archive  ResultLister
	Verifier TokenVerifier

	now func() time.Time
}

// NewHandler creates a new API handler. archive and verifier may be nil.
func NewHandler(cfg *config.Config, archive ResultLister, verifier TokenVerifier) *Handler {
	return &Handler{
		Config:   cfg,
		Archive:  archive,
		Verifier: verifier,
		now:      time.Now,
	}
}

// Routes registers the informational endpoints, the results API and the
// static file fallback on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /files", h.Files)
	mux.HandleFunc("GET /api/results", h.Results)
	mux.Handle("GET /", Static(h.Config.StaticRoot))
}

// CORS allows every origin on every response and answers preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "tag", "api", "err", err)
	}
}
