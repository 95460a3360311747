package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"iterable-forwarder/internal/domain"
)

const BatchQueueKey = "batch_queue"

// Job kinds queued for asynchronous processing.
const (
	JobKindEvents   = "events"
	JobKindAudience = "audience"
)

// Job is one queued processing request. Exactly one of Batch and Audience
// is set, per Kind.
type Job struct {
	ID         string                  `json:"id"`
	Kind       string                  `json:"kind"`
	Batch      *domain.Batch           `json:"batch,omitempty"`
	Audience   *domain.AudienceRequest `json:"audience,omitempty"`
	EnqueuedAt int64                   `json:"enqueued_at"`
}

// Queue holds processing requests the host submitted asynchronously, as a
// Redis sorted set scored by enqueue time.
type Queue struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewQueue(redisClient *redis.Client, logger *slog.Logger) *Queue {
	return &Queue{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Enqueue adds a job to the queue, scored at the current time.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	job.EnqueuedAt = time.Now().UnixMicro()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	err = q.redisClient.ZAdd(ctx, BatchQueueKey, redis.Z{
		Score:  float64(job.EnqueuedAt),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("queuing job to redis: %w", err)
	}

	q.logger.Info("job queued",
		"job_id", job.ID,
		"kind", job.Kind,
	)
	return nil
}

// Depth returns the current number of jobs waiting in the queue.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.redisClient.ZCard(ctx, BatchQueueKey).Result()
}
