package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker guards outbound API calls per project, backed by Redis so
// state is shared between workers. State transitions:
// closed → open → half-open → closed.
//
// - Closed: normal operation, failures are counted.
// - Open: all calls for the project are rejected until the cooldown.
// - Half-Open: one test call is allowed. Success → closed, failure → open.
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
}

func NewCircuitBreaker(redisClient *redis.Client, logger *slog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: 5,
		cooldownPeriod:   30 * time.Second,
	}
}

// cbKey derives the Redis key for a project. The project key is an API
// key, so it is hashed rather than stored verbatim.
func cbKey(projectKey string) string {
	sum := sha256.Sum256([]byte(projectKey))
	return fmt.Sprintf("cb:%x", sum[:8])
}

// AllowRequest checks whether an outbound call for this project may
// proceed. Returns the current state and the decision.
func (cb *CircuitBreaker) AllowRequest(ctx context.Context, projectKey string) (string, bool) {
	key := cbKey(projectKey)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		// No state yet — circuit is closed (default)
		return StateClosed, true
	}

	state := data["state"]
	lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)

	switch state {
	case StateOpen:
		if time.Now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds()) {
			// Cooldown elapsed: allow one test request
			cb.redisClient.HSet(ctx, key, "state", StateHalfOpen)
			cb.logger.Info("outbound circuit half-open", "project", key)
			return StateHalfOpen, true
		}
		return StateOpen, false

	case StateHalfOpen:
		return StateHalfOpen, true

	default:
		return StateClosed, true
	}
}

// RecordSuccess resets the project's circuit to closed.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, projectKey string) {
	key := cbKey(projectKey)

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	cb.redisClient.HSet(ctx, key,
		"state", StateClosed,
		"failures", 0,
	)

	if state == StateHalfOpen {
		cb.logger.Info("outbound circuit closed (recovered)", "project", key)
	}
}

// RecordFailure counts a failed call and opens the circuit at the
// threshold.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, projectKey string) {
	key := cbKey(projectKey)

	failures, err := cb.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		cb.logger.Error("failed to record circuit failure", "error", err)
		return
	}

	cb.redisClient.HSet(ctx, key, "last_failed_at", time.Now().Unix())

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	switch {
	case state == StateHalfOpen:
		// Half-open test failed → back to open
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("outbound circuit re-opened (half-open test failed)", "project", key)
	case failures >= int64(cb.failureThreshold):
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("outbound circuit opened",
			"project", key,
			"failures", failures,
			"threshold", cb.failureThreshold,
		)
	default:
		if state == "" {
			cb.redisClient.HSet(ctx, key, "state", StateClosed)
		}
	}
}
