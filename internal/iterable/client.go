package iterable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// API endpoint paths.
const (
	EndpointUserUpdate          = "/api/users/update"
	EndpointUpdateEmail         = "/api/users/updateEmail"
	EndpointUpdateSubscriptions = "/api/users/updateSubscriptions"
	EndpointRegisterDeviceToken = "/api/users/registerDeviceToken"
	EndpointTrack               = "/api/events/track"
	EndpointTrackPushOpen       = "/api/events/trackPushOpen"
	EndpointTrackPurchase       = "/api/commerce/trackPurchase"
	EndpointListSubscribe       = "/api/lists/subscribe"
	EndpointListUnsubscribe     = "/api/lists/unsubscribe"
)

// ErrCircuitOpen is returned when the outbound circuit breaker is
// rejecting calls for the project.
var ErrCircuitOpen = errors.New("outbound circuit open")

// TransportError is a call that never produced a successful HTTP exchange:
// either the wire failed (Status 0) or the API answered non-2xx.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("iterable transport error: %v", e.Err)
	}
	return fmt.Sprintf("iterable returned HTTP %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is the outbound capability the pipeline depends on. Every method
// executes one API call and returns the decoded response envelope; a
// returned error is always a transport-level failure, application-level
// rejection is left to the caller to classify.
type Client interface {
	UpdateUser(ctx context.Context, apiKey string, req *UserUpdateRequest) (*APIResponse, error)
	UpdateEmail(ctx context.Context, apiKey string, req *UpdateEmailRequest) (*APIResponse, error)
	UpdateSubscriptions(ctx context.Context, apiKey string, req *UpdateSubscriptionsRequest) (*APIResponse, error)
	RegisterDeviceToken(ctx context.Context, apiKey string, req *RegisterDeviceTokenRequest) (*APIResponse, error)
	Track(ctx context.Context, apiKey string, req *TrackRequest) (*APIResponse, error)
	TrackPushOpen(ctx context.Context, apiKey string, req *TrackPushOpenRequest) (*APIResponse, error)
	TrackPurchase(ctx context.Context, apiKey string, req *TrackPurchaseRequest) (*APIResponse, error)
	ListSubscribe(ctx context.Context, apiKey string, req *SubscribeRequest) (*ListResponse, error)
	ListUnsubscribe(ctx context.Context, apiKey string, req *UnsubscribeRequest) (*ListResponse, error)
}

// Breaker guards outbound calls per project key.
type Breaker interface {
	AllowRequest(ctx context.Context, projectKey string) (string, bool)
	RecordSuccess(ctx context.Context, projectKey string)
	RecordFailure(ctx context.Context, projectKey string)
}

// Limiter throttles outbound calls per project key.
type Limiter interface {
	Allow(ctx context.Context, projectKey string, limit int) bool
}

// HTTPClient is the production Client backed by net/http, with optional
// redis-backed circuit breaking and rate limiting around every call.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    Breaker
	limiter    Limiter
	rateLimit  int
	logger     *slog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithBreaker guards calls with a circuit breaker keyed by API key.
func WithBreaker(b Breaker) Option {
	return func(c *HTTPClient) { c.breaker = b }
}

// WithRateLimit throttles calls to at most limit per second per API key.
func WithRateLimit(l Limiter, limit int) Option {
	return func(c *HTTPClient) {
		c.limiter = l
		c.rateLimit = limit
	}
}

// WithTimeout overrides the default 10s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// NewHTTPClient creates a client for the given API base URL.
func NewHTTPClient(baseURL string, logger *slog.Logger, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) UpdateUser(ctx context.Context, apiKey string, req *UserUpdateRequest) (*APIResponse, error) {
	return c.doAPI(ctx, apiKey, EndpointUserUpdate, req)
}

func (c *HTTPClient) UpdateEmail(ctx context.Context, apiKey string, req *UpdateEmailRequest) (*APIResponse, error) {
	return c.doAPI(ctx, apiKey, EndpointUpdateEmail, req)
}

func (c *HTTPClient) UpdateSubscriptions(ctx context.Context, apiKey string, req *UpdateSubscriptionsRequest) (*APIResponse, error) {
	return c.doAPI(ctx, apiKey, EndpointUpdateSubscriptions, req)
}

func (c *HTTPClient) RegisterDeviceToken(ctx context.Context, apiKey string, req *RegisterDeviceTokenRequest) (*APIResponse, error) {
	return c.doAPI(ctx, apiKey, EndpointRegisterDeviceToken, req)
}

func (c *HTTPClient) Track(ctx context.Context, apiKey string, req *TrackRequest) (*APIResponse, error) {
	return c.doAPI(ctx, apiKey, EndpointTrack, req)
}

func (c *HTTPClient) TrackPushOpen(ctx context.Context, apiKey string, req *TrackPushOpenRequest) (*APIResponse, error) {
	return c.doAPI(ctx, apiKey, EndpointTrackPushOpen, req)
}

func (c *HTTPClient) TrackPurchase(ctx context.Context, apiKey string, req *TrackPurchaseRequest) (*APIResponse, error) {
	return c.doAPI(ctx, apiKey, EndpointTrackPurchase, req)
}

func (c *HTTPClient) ListSubscribe(ctx context.Context, apiKey string, req *SubscribeRequest) (*ListResponse, error) {
	var resp ListResponse
	if err := c.do(ctx, apiKey, EndpointListSubscribe, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ListUnsubscribe(ctx context.Context, apiKey string, req *UnsubscribeRequest) (*ListResponse, error) {
	var resp ListResponse
	if err := c.do(ctx, apiKey, EndpointListUnsubscribe, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) doAPI(ctx context.Context, apiKey, path string, body any) (*APIResponse, error) {
	var resp APIResponse
	if err := c.do(ctx, apiKey, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do executes one POST against the API, honoring the breaker and limiter,
// and decodes the response body into out.
func (c *HTTPClient) do(ctx context.Context, apiKey, path string, body, out any) error {
	if c.breaker != nil {
		if _, allowed := c.breaker.AllowRequest(ctx, apiKey); !allowed {
			return &TransportError{Err: ErrCircuitOpen}
		}
	}
	if err := c.waitForSlot(ctx, apiKey); err != nil {
		return &TransportError{Err: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx, apiKey)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	// Limit response reads; error bodies can be arbitrarily large.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	c.logger.Debug("outbound call",
		"endpoint", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.recordFailure(ctx, apiKey)
		return &TransportError{Status: resp.StatusCode, Body: string(raw)}
	}

	if c.breaker != nil {
		c.breaker.RecordSuccess(ctx, apiKey)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// waitForSlot blocks until the rate limiter admits the call or the context
// is cancelled.
func (c *HTTPClient) waitForSlot(ctx context.Context, apiKey string) error {
	if c.limiter == nil || c.rateLimit <= 0 {
		return nil
	}
	for {
		if c.limiter.Allow(ctx, apiKey, c.rateLimit) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (c *HTTPClient) recordFailure(ctx context.Context, apiKey string) {
	if c.breaker != nil {
		c.breaker.RecordFailure(ctx, apiKey)
	}
}
