package domain

import "time"

// DispatchAttempt is one recorded outbound API call, as returned by the
// audit log API.
type DispatchAttempt struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id"`
	RequestKind    string    `json:"request_kind"`
	Endpoint       string    `json:"endpoint"`
	Status         string    `json:"status"`
	HTTPStatusCode *int      `json:"http_status_code,omitempty"`
	AppCode        string    `json:"app_code,omitempty"`
	DurationMs     int       `json:"duration_ms"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
