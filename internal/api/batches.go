package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"iterable-forwarder/internal/domain"
	"iterable-forwarder/internal/engine"
	"iterable-forwarder/internal/pipeline"
)

// BatchHandler accepts event-processing requests from the host, either
// synchronously or via the queue.
type BatchHandler struct {
	processor *pipeline.Processor
	queue     *engine.Queue
}

func NewBatchHandler(processor *pipeline.Processor, queue *engine.Queue) *BatchHandler {
	return &BatchHandler{processor: processor, queue: queue}
}

type processedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Process handles POST /batches: run the batch through the pipeline and
// return the outcome in the response.
func (h *BatchHandler) Process(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch(w, r)
	if !ok {
		return
	}

	if err := h.processor.ProcessBatch(r.Context(), batch); err != nil {
		respondProcessingError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, processedResponse{
		JobID:  batch.ID,
		Status: "processed",
	})
}

// Enqueue handles POST /batches/queue: validate, queue, return 202.
func (h *BatchHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBatch(w, r)
	if !ok {
		return
	}

	job := engine.Job{
		ID:    batch.ID,
		Kind:  engine.JobKindEvents,
		Batch: batch,
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to queue batch")
		return
	}

	respondJSON(w, http.StatusAccepted, processedResponse{
		JobID:  job.ID,
		Status: "queued",
	})
}

// decodeBatch reads and validates the request body. Settings are parsed
// here once so malformed account configuration is rejected before any
// outbound call is attempted.
func decodeBatch(w http.ResponseWriter, r *http.Request) (*domain.Batch, bool) {
	var batch domain.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if _, err := batch.Account.ParseSettings(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	return &batch, true
}
