package api

import (
	"log/slog"
	"net/http"

	"cct-server/auth"
	"cct-server/storage"
)

// ResultsResponse is the JSON structure for /api/results.
type ResultsResponse struct {
	Trials  []storage.TrialRecord `json:"trials"`
	Summary storage.Summary       `json:"summary"`
}

// participantID validates the Authorization header and returns the participant id, or empty string on failure.
func (h *Handler) participantID(r *http.Request) string {
	if h.Verifier == nil {
		return ""
	}
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return ""
	}
	id, err := h.Verifier.ParticipantFromToken(token)
	if err != nil {
		slog.Info("token rejected", "tag", "api", "err", err)
		return ""
	}
	return id
}

// Results returns the archived trials of the authenticated participant.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	participantID := h.participantID(r)
	if participantID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	list := []storage.TrialRecord{}
	if h.Archive != nil {
		var err error
		list, err = h.Archive.ListByParticipant(r.Context(), participantID)
		if err != nil {
			slog.Error("ListByParticipant", "tag", "api", "participant", participantID, "err", err)
			http.Error(w, "failed to load results", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []storage.TrialRecord{}
		}
	}

	writeJSON(w, ResultsResponse{Trials: list, Summary: storage.Summarize(list)})
}
