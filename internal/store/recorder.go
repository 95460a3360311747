package store

import (
	"context"
	"log/slog"

	"iterable-forwarder/internal/pipeline"
)

// AttemptRecorder adapts the Postgres audit log to the pipeline's recorder
// capability. Persistence failures are logged, never surfaced — losing an
// audit row must not fail a batch.
type AttemptRecorder struct {
	pgStore *PostgresStore
	logger  *slog.Logger
}

func NewAttemptRecorder(pgStore *PostgresStore, logger *slog.Logger) *AttemptRecorder {
	return &AttemptRecorder{pgStore: pgStore, logger: logger}
}

func (r *AttemptRecorder) Record(ctx context.Context, rec pipeline.AttemptRecord) {
	err := r.pgStore.RecordDispatchAttempt(ctx, DispatchAttemptRecord{
		JobID:          rec.JobID,
		RequestKind:    rec.RequestKind,
		Endpoint:       rec.Endpoint,
		Status:         rec.Status,
		HTTPStatusCode: rec.HTTPStatusCode,
		AppCode:        rec.AppCode,
		DurationMs:     rec.DurationMs,
		ErrorMessage:   rec.ErrorMessage,
	})
	if err != nil {
		r.logger.Error("failed to record dispatch attempt",
			"error", err,
			"job_id", rec.JobID,
			"request_kind", rec.RequestKind,
		)
	}
}
