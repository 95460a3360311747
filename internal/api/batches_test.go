package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"iterable-forwarder/internal/domain"
	"iterable-forwarder/internal/iterable"
	"iterable-forwarder/internal/pipeline"
)

// stubClient answers every call with success, except the kinds listed in
// failWith, which return that error.
type stubClient struct {
	mu       sync.Mutex
	kinds    []string
	failWith map[string]error
}

func (s *stubClient) record(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
	if s.failWith != nil {
		return s.failWith[kind]
	}
	return nil
}

func (s *stubClient) ok(kind string) (*iterable.APIResponse, error) {
	if err := s.record(kind); err != nil {
		return nil, err
	}
	return &iterable.APIResponse{Code: "Success"}, nil
}

func (s *stubClient) UpdateUser(context.Context, string, *iterable.UserUpdateRequest) (*iterable.APIResponse, error) {
	return s.ok("updateUser")
}

func (s *stubClient) UpdateEmail(context.Context, string, *iterable.UpdateEmailRequest) (*iterable.APIResponse, error) {
	return s.ok("updateEmail")
}

func (s *stubClient) UpdateSubscriptions(context.Context, string, *iterable.UpdateSubscriptionsRequest) (*iterable.APIResponse, error) {
	return s.ok("updateSubscriptions")
}

func (s *stubClient) RegisterDeviceToken(context.Context, string, *iterable.RegisterDeviceTokenRequest) (*iterable.APIResponse, error) {
	return s.ok("registerDeviceToken")
}

func (s *stubClient) Track(context.Context, string, *iterable.TrackRequest) (*iterable.APIResponse, error) {
	return s.ok("track")
}

func (s *stubClient) TrackPushOpen(context.Context, string, *iterable.TrackPushOpenRequest) (*iterable.APIResponse, error) {
	return s.ok("trackPushOpen")
}

func (s *stubClient) TrackPurchase(context.Context, string, *iterable.TrackPurchaseRequest) (*iterable.APIResponse, error) {
	return s.ok("trackPurchase")
}

func (s *stubClient) ListSubscribe(_ context.Context, _ string, req *iterable.SubscribeRequest) (*iterable.ListResponse, error) {
	if err := s.record("listSubscribe"); err != nil {
		return nil, err
	}
	return &iterable.ListResponse{SuccessCount: len(req.Subscribers)}, nil
}

func (s *stubClient) ListUnsubscribe(_ context.Context, _ string, req *iterable.UnsubscribeRequest) (*iterable.ListResponse, error) {
	if err := s.record("listUnsubscribe"); err != nil {
		return nil, err
	}
	return &iterable.ListResponse{SuccessCount: len(req.Subscribers)}, nil
}

func newTestBatchHandler(t *testing.T, client *stubClient) *BatchHandler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	processor := pipeline.NewProcessor(client, nil, nil, logger)
	return NewBatchHandler(processor, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestBatchHandler_Process(t *testing.T) {
	client := &stubClient{}
	handler := newTestBatchHandler(t, client)

	batch := domain.Batch{
		ID:      "job-1",
		Account: domain.Account{Settings: map[string]string{domain.SettingAPIKey: "key"}},
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
	}

	rec := postJSON(t, handler.Process, batch)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp processedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.JobID != "job-1" || resp.Status != "processed" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(client.kinds) == 0 {
		t.Error("expected outbound calls")
	}
}

func TestBatchHandler_InvalidBody(t *testing.T) {
	handler := newTestBatchHandler(t, &stubClient{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.Process(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestBatchHandler_MissingAPIKey(t *testing.T) {
	handler := newTestBatchHandler(t, &stubClient{})

	rec := postJSON(t, handler.Process, domain.Batch{})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBatchHandler_ErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		batch      domain.Batch
		failWith   map[string]error
		wantStatus int
		wantKind   string
	}{
		{
			name: "identity resolution",
			batch: domain.Batch{
				Account: domain.Account{Settings: map[string]string{domain.SettingAPIKey: "key"}},
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "identity_resolution",
		},
		{
			name: "unsupported environment",
			batch: domain.Batch{
				Account:            domain.Account{Settings: map[string]string{domain.SettingAPIKey: "key"}},
				RuntimeEnvironment: domain.RuntimeEnvironment{Platform: domain.PlatformMobileWeb},
				UserIdentities: []domain.UserIdentity{
					{Type: domain.IdentityEmail, Value: "user@example.com"},
				},
				Events: []domain.Event{
					{
						Type:             domain.EventTypePushSubscription,
						PushSubscription: &domain.PushSubscriptionEvent{Action: domain.PushSubscribe, Token: "tok"},
					},
				},
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "unsupported_environment",
		},
		{
			name: "transport failure",
			batch: domain.Batch{
				Account: domain.Account{Settings: map[string]string{domain.SettingAPIKey: "key"}},
				UserIdentities: []domain.UserIdentity{
					{Type: domain.IdentityEmail, Value: "user@example.com"},
				},
			},
			failWith:   map[string]error{"updateUser": &iterable.TransportError{Status: 503, Body: "unavailable"}},
			wantStatus: http.StatusBadGateway,
			wantKind:   "transport_failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestBatchHandler(t, &stubClient{failWith: tt.failWith})

			rec := postJSON(t, handler.Process, tt.batch)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.ErrorKind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, resp.ErrorKind)
			}
		})
	}
}
