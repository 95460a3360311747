package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"iterable-forwarder/internal/domain"
	"iterable-forwarder/internal/engine"
	"iterable-forwarder/internal/pipeline"
)

// AudienceHandler accepts audience membership change requests.
type AudienceHandler struct {
	processor *pipeline.Processor
	queue     *engine.Queue
}

func NewAudienceHandler(processor *pipeline.Processor, queue *engine.Queue) *AudienceHandler {
	return &AudienceHandler{processor: processor, queue: queue}
}

type audienceResponse struct {
	JobID  string                 `json:"job_id"`
	Status string                 `json:"status"`
	Lists  []pipeline.ListOutcome `json:"lists"`
}

// Process handles POST /audiences: diff the profiles, issue the grouped
// list calls, and return every list's outcome. A failed list does not
// hide the others; the response status reflects the aggregate.
func (h *AudienceHandler) Process(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAudienceRequest(w, r)
	if !ok {
		return
	}

	outcome, err := h.processor.ProcessAudienceChange(r.Context(), req)
	if outcome == nil {
		// Nothing was attempted — settings are invalid.
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := audienceResponse{
		JobID:  req.ID,
		Status: "processed",
		Lists:  outcome.Lists,
	}
	status := http.StatusOK
	if err != nil {
		resp.Status = "partial_failure"
		status = http.StatusBadGateway
	}
	respondJSON(w, status, resp)
}

// Enqueue handles POST /audiences/queue.
func (h *AudienceHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAudienceRequest(w, r)
	if !ok {
		return
	}

	job := engine.Job{
		ID:       req.ID,
		Kind:     engine.JobKindAudience,
		Audience: req,
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to queue audience change")
		return
	}

	respondJSON(w, http.StatusAccepted, processedResponse{
		JobID:  job.ID,
		Status: "queued",
	})
}

func decodeAudienceRequest(w http.ResponseWriter, r *http.Request) (*domain.AudienceRequest, bool) {
	var req domain.AudienceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if _, err := req.Account.ParseSettings(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return &req, true
}
