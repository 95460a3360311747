package api

import (
	"net/http"
	"strconv"

	"iterable-forwarder/internal/store"
)

// AttemptHandler serves the outbound dispatch audit log.
type AttemptHandler struct {
	store *store.PostgresStore
}

func NewAttemptHandler(s *store.PostgresStore) *AttemptHandler {
	return &AttemptHandler{store: s}
}

func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	status := r.URL.Query().Get("status")
	limitStr := r.URL.Query().Get("limit")

	limit := 50
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	attempts, err := h.store.ListDispatchAttempts(r.Context(), jobID, status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list dispatch attempts")
		return
	}

	respondJSON(w, http.StatusOK, attempts)
}
