package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"iterable-forwarder/internal/engine"
	"iterable-forwarder/internal/pipeline"
	ws "iterable-forwarder/internal/websocket"
)

// Runner processes one queued job through the pipeline and broadcasts the
// outcome.
type Runner struct {
	processor *pipeline.Processor
	hub       *ws.Hub
	logger    *slog.Logger
}

// NewRunner creates a runner. hub may be nil when no dashboard is wired.
func NewRunner(processor *pipeline.Processor, hub *ws.Hub, logger *slog.Logger) *Runner {
	return &Runner{
		processor: processor,
		hub:       hub,
		logger:    logger,
	}
}

// Run executes one job synchronously. Failures are terminal for the job;
// retry policy belongs to the host, which observes the outcome.
func (r *Runner) Run(ctx context.Context, job engine.Job) {
	start := time.Now()

	var err error
	switch job.Kind {
	case engine.JobKindEvents:
		err = r.processor.ProcessBatch(ctx, job.Batch)
	case engine.JobKindAudience:
		_, err = r.processor.ProcessAudienceChange(ctx, job.Audience)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		r.logger.Warn("job failed",
			"job_id", job.ID,
			"kind", job.Kind,
			"error", err,
			"duration_ms", elapsed,
		)
	} else {
		r.logger.Info("job processed",
			"job_id", job.ID,
			"kind", job.Kind,
			"duration_ms", elapsed,
		)
	}

	if r.hub != nil {
		event := ws.DispatchEvent{
			Type:       "job_processed",
			JobID:      job.ID,
			Kind:       job.Kind,
			DurationMs: elapsed,
			Timestamp:  time.Now(),
		}
		if err != nil {
			event.Type = "job_failed"
			event.Error = err.Error()
		}
		r.hub.Broadcast(event)
	}
}
