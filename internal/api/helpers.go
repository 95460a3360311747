package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"iterable-forwarder/internal/iterable"
	"iterable-forwarder/internal/pipeline"
)

type errorResponse struct {
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Status: "failed", Error: message})
}

// respondProcessingError maps a pipeline failure to an HTTP status and a
// stable error kind the host can branch on.
func respondProcessingError(w http.ResponseWriter, err error) {
	kind, status := classifyError(err)
	respondJSON(w, status, errorResponse{
		Status:    "failed",
		ErrorKind: kind,
		Error:     err.Error(),
	})
}

func classifyError(err error) (kind string, status int) {
	var rejected *pipeline.RejectedError
	var transport *iterable.TransportError

	switch {
	case errors.Is(err, pipeline.ErrIdentityResolution):
		return "identity_resolution", http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrMalformedPayload):
		return "malformed_payload", http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrUnsupportedEnvironment):
		return "unsupported_environment", http.StatusUnprocessableEntity
	case errors.As(err, &rejected):
		return "outbound_rejected", http.StatusBadGateway
	case errors.As(err, &transport):
		return "transport_failure", http.StatusBadGateway
	default:
		return "internal", http.StatusInternalServerError
	}
}
