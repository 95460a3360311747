package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"iterable-forwarder/internal/domain"
	"iterable-forwarder/internal/iterable"
)

// fakeClient records every outbound call in order. failOps maps a call
// kind to an error that the corresponding method returns.
type fakeClient struct {
	calls   []fakeCall
	failOps map[string]error
}

type fakeCall struct {
	kind string
	req  any
}

func (f *fakeClient) record(kind string, req any) error {
	f.calls = append(f.calls, fakeCall{kind: kind, req: req})
	if err, ok := f.failOps[kind]; ok {
		return err
	}
	return nil
}

func (f *fakeClient) api(kind string, req any) (*iterable.APIResponse, error) {
	if err := f.record(kind, req); err != nil {
		return nil, err
	}
	return &iterable.APIResponse{Code: "Success"}, nil
}

func (f *fakeClient) UpdateUser(_ context.Context, _ string, req *iterable.UserUpdateRequest) (*iterable.APIResponse, error) {
	return f.api("updateUser", req)
}

func (f *fakeClient) UpdateEmail(_ context.Context, _ string, req *iterable.UpdateEmailRequest) (*iterable.APIResponse, error) {
	return f.api("updateEmail", req)
}

func (f *fakeClient) UpdateSubscriptions(_ context.Context, _ string, req *iterable.UpdateSubscriptionsRequest) (*iterable.APIResponse, error) {
	return f.api("updateSubscriptions", req)
}

func (f *fakeClient) RegisterDeviceToken(_ context.Context, _ string, req *iterable.RegisterDeviceTokenRequest) (*iterable.APIResponse, error) {
	return f.api("registerDeviceToken", req)
}

func (f *fakeClient) Track(_ context.Context, _ string, req *iterable.TrackRequest) (*iterable.APIResponse, error) {
	return f.api("track", req)
}

func (f *fakeClient) TrackPushOpen(_ context.Context, _ string, req *iterable.TrackPushOpenRequest) (*iterable.APIResponse, error) {
	return f.api("trackPushOpen", req)
}

func (f *fakeClient) TrackPurchase(_ context.Context, _ string, req *iterable.TrackPurchaseRequest) (*iterable.APIResponse, error) {
	return f.api("trackPurchase", req)
}

func (f *fakeClient) ListSubscribe(_ context.Context, _ string, req *iterable.SubscribeRequest) (*iterable.ListResponse, error) {
	if err := f.record("listSubscribe", req); err != nil {
		return nil, err
	}
	return &iterable.ListResponse{SuccessCount: len(req.Subscribers)}, nil
}

func (f *fakeClient) ListUnsubscribe(_ context.Context, _ string, req *iterable.UnsubscribeRequest) (*iterable.ListResponse, error) {
	if err := f.record("listUnsubscribe", req); err != nil {
		return nil, err
	}
	return &iterable.ListResponse{SuccessCount: len(req.Subscribers)}, nil
}

func (f *fakeClient) kinds() []string {
	kinds := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		kinds = append(kinds, c.kind)
	}
	return kinds
}

func setupProcessor(t *testing.T) (*Processor, *fakeClient) {
	t.Helper()
	client := &fakeClient{failOps: map[string]error{}}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewProcessor(client, nil, nil, logger), client
}

func baseAccount() domain.Account {
	return domain.Account{Settings: map[string]string{
		domain.SettingAPIKey:          "test-key",
		domain.SettingGCMName:         "gcm-app",
		domain.SettingAPNSName:        "apns-app",
		domain.SettingAPNSSandboxName: "apns-sandbox-app",
	}}
}

func TestProcessBatch_InvalidSettings(t *testing.T) {
	p, client := setupProcessor(t)

	err := p.ProcessBatch(context.Background(), &domain.Batch{Account: domain.Account{}})
	if err == nil {
		t.Fatal("expected settings error")
	}
	if len(client.calls) != 0 {
		t.Errorf("no calls expected on invalid settings, got %v", client.kinds())
	}
}

func TestProcessBatch_UserUpdate(t *testing.T) {
	p, client := setupProcessor(t)
	batch := &domain.Batch{
		ID:      "job-1",
		Account: baseAccount(),
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
			{Type: domain.IdentityCustomer, Value: "cust-1"},
		},
		UserAttributes: map[string]string{"plan": "gold"},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.calls) != 1 || client.calls[0].kind != "updateUser" {
		t.Fatalf("expected a single updateUser call, got %v", client.kinds())
	}
	req := client.calls[0].req.(*iterable.UserUpdateRequest)
	if req.Email != "user@example.com" || req.UserID != "cust-1" {
		t.Errorf("unexpected identity: %+v", req)
	}
	if req.DataFields["plan"] != "gold" {
		t.Errorf("coercion is off by default, want raw string, got %v", req.DataFields["plan"])
	}
}

func TestProcessBatch_EmailReconciliation(t *testing.T) {
	p, client := setupProcessor(t)
	batch := &domain.Batch{
		Account: baseAccount(),
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityCustomer, Value: "cust-1"},
		},
		Events: []domain.Event{
			{
				Type:      domain.EventTypeUserIdentityChange,
				Timestamp: 2000,
				IdentityChange: &domain.UserIdentityChangeEvent{
					Added:   []domain.UserIdentity{{Type: domain.IdentityEmail, Value: "b@x.com"}},
					Removed: []domain.UserIdentity{{Type: domain.IdentityEmail, Value: "a@x.com"}},
				},
			},
			{
				Type:      domain.EventTypeUserIdentityChange,
				Timestamp: 1000,
				IdentityChange: &domain.UserIdentityChangeEvent{
					Added: []domain.UserIdentity{{Type: domain.IdentityEmail, Value: "a@x.com"}},
				},
			},
		},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var updates []*iterable.UpdateEmailRequest
	for _, c := range client.calls {
		if c.kind == "updateEmail" {
			updates = append(updates, c.req.(*iterable.UpdateEmailRequest))
		}
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updateEmail calls, got %v", client.kinds())
	}
	// Events are re-sorted by timestamp, so the placeholder replacement
	// comes first.
	if updates[0].CurrentEmail != "cust-1"+PlaceholderEmailDomain || updates[0].NewEmail != "a@x.com" {
		t.Errorf("unexpected first update: %+v", updates[0])
	}
	if updates[1].CurrentEmail != "a@x.com" || updates[1].NewEmail != "b@x.com" {
		t.Errorf("unexpected second update: %+v", updates[1])
	}
}

func TestSortEventsByTimestamp_StableAndIdempotent(t *testing.T) {
	events := []domain.Event{
		{Type: domain.EventTypeCustom, Timestamp: 300, Custom: &domain.CustomEvent{Name: "c"}},
		{Type: domain.EventTypeCustom, Timestamp: 100, Custom: &domain.CustomEvent{Name: "a1"}},
		{Type: domain.EventTypeCustom, Timestamp: 100, Custom: &domain.CustomEvent{Name: "a2"}},
		{Type: domain.EventTypeCustom, Timestamp: 200, Custom: &domain.CustomEvent{Name: "b"}},
	}

	sortEventsByTimestamp(events)

	wantNames := []string{"a1", "a2", "b", "c"}
	for i, want := range wantNames {
		if events[i].Custom.Name != want {
			t.Fatalf("position %d: got %s, want %s", i, events[i].Custom.Name, want)
		}
	}

	// Sorting again must not reorder anything.
	sortEventsByTimestamp(events)
	for i, want := range wantNames {
		if events[i].Custom.Name != want {
			t.Errorf("re-sort moved position %d: got %s, want %s", i, events[i].Custom.Name, want)
		}
	}
}

func TestProcessBatch_CustomEventTracked(t *testing.T) {
	p, client := setupProcessor(t)
	batch := &domain.Batch{
		Account: baseAccount(),
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
		Events: []domain.Event{
			{
				Type:      domain.EventTypeCustom,
				Timestamp: 1756000000000,
				Custom: &domain.CustomEvent{
					Name:       "level_completed",
					Attributes: map[string]string{"level": "7"},
				},
			},
		},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var track *iterable.TrackRequest
	for _, c := range client.calls {
		if c.kind == "track" {
			track = c.req.(*iterable.TrackRequest)
		}
	}
	if track == nil {
		t.Fatalf("expected a track call, got %v", client.kinds())
	}
	if track.EventName != "level_completed" {
		t.Errorf("unexpected event name %q", track.EventName)
	}
	if track.CreatedAt != 1756000000 {
		t.Errorf("timestamp must convert to seconds, got %d", track.CreatedAt)
	}
	// Event attributes are always coerced regardless of account settings.
	if track.DataFields["level"] != 7 {
		t.Errorf("expected coerced int attribute, got %v (%T)", track.DataFields["level"], track.DataFields["level"])
	}
}

func TestProcessBatch_SubscriptionUpdateEvent(t *testing.T) {
	p, client := setupProcessor(t)
	batch := &domain.Batch{
		Account: baseAccount(),
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
		Events: []domain.Event{
			{
				Type: domain.EventTypeCustom,
				Custom: &domain.CustomEvent{
					Name:       "subscriptionsUpdated",
					Attributes: map[string]string{AttrEmailListIDs: "1,2"},
				},
			},
		},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, c := range client.calls {
		if c.kind == "track" {
			t.Fatal("reserved event must not be tracked generically")
		}
	}
	var sub *iterable.UpdateSubscriptionsRequest
	for _, c := range client.calls {
		if c.kind == "updateSubscriptions" {
			sub = c.req.(*iterable.UpdateSubscriptionsRequest)
		}
	}
	if sub == nil {
		t.Fatalf("expected updateSubscriptions, got %v", client.kinds())
	}
	if sub.Email != "user@example.com" {
		t.Errorf("unexpected email %q", sub.Email)
	}
}

func TestProcessBatch_PurchaseOnly(t *testing.T) {
	p, client := setupProcessor(t)
	quantity := 2.0
	batch := &domain.Batch{
		Account: baseAccount(),
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
		Events: []domain.Event{
			{
				Type: domain.EventTypeProductAction,
				ProductAction: &domain.ProductActionEvent{
					Action: domain.ProductActionAddToCart,
					Products: []domain.Product{
						{ID: "sku-1", Price: 5},
					},
				},
			},
			{
				Type:      domain.EventTypeProductAction,
				Timestamp: 1756000000000,
				ProductAction: &domain.ProductActionEvent{
					Action:      domain.ProductActionPurchase,
					TotalAmount: 19.98,
					Products: []domain.Product{
						{ID: "sku-1", Name: "Widget", Category: "tools", Price: 9.99, Quantity: &quantity},
					},
				},
			},
		},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var purchases []*iterable.TrackPurchaseRequest
	for _, c := range client.calls {
		if c.kind == "trackPurchase" {
			purchases = append(purchases, c.req.(*iterable.TrackPurchaseRequest))
		}
	}
	if len(purchases) != 1 {
		t.Fatalf("only the purchase action fires, got %v", client.kinds())
	}
	req := purchases[0]
	if req.Total != 19.98 {
		t.Errorf("unexpected total %v", req.Total)
	}
	if len(req.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(req.Items))
	}
	item := req.Items[0]
	if item.ID != "sku-1" || item.SKU != "sku-1" {
		t.Errorf("product id must fill both id and sku, got %+v", item)
	}
	if item.Quantity != 2 {
		t.Errorf("unexpected quantity %d", item.Quantity)
	}
	if len(item.Categories) != 1 || item.Categories[0] != "tools" {
		t.Errorf("unexpected categories %v", item.Categories)
	}
}

func TestProcessBatch_PushOpen(t *testing.T) {
	payload := `{"itbl":{"campaignId":100,"templateId":200,"messageId":"m-1"}}`
	p, client := setupProcessor(t)
	batch := &domain.Batch{
		Account:            baseAccount(),
		RuntimeEnvironment: domain.RuntimeEnvironment{Platform: domain.PlatformIOS},
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
		Events: []domain.Event{
			{
				Type:      domain.EventTypePushMessageOpen,
				Timestamp: 1756000000000,
				PushOpen:  &domain.PushMessageOpenEvent{Payload: payload},
			},
		},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var open *iterable.TrackPushOpenRequest
	for _, c := range client.calls {
		if c.kind == "trackPushOpen" {
			open = c.req.(*iterable.TrackPushOpenRequest)
		}
	}
	if open == nil {
		t.Fatalf("expected trackPushOpen, got %v", client.kinds())
	}
	if open.CampaignID != 100 || open.TemplateID != 200 || open.MessageID != "m-1" {
		t.Errorf("unexpected request: %+v", open)
	}
	if open.CreatedAt != 1756000000 {
		t.Errorf("timestamp must convert to seconds, got %d", open.CreatedAt)
	}
}

func TestProcessBatch_PushOpenAndroidStringPayload(t *testing.T) {
	payload := `{"itbl":"{\"campaignId\":100,\"templateId\":200}"}`
	p, client := setupProcessor(t)
	batch := &domain.Batch{
		Account:            baseAccount(),
		RuntimeEnvironment: domain.RuntimeEnvironment{Platform: domain.PlatformAndroid},
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
		Events: []domain.Event{
			{
				Type:     domain.EventTypePushMessageOpen,
				PushOpen: &domain.PushMessageOpenEvent{Payload: payload},
			},
		},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, c := range client.calls {
		if c.kind == "trackPushOpen" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected trackPushOpen for nested-string payload, got %v", client.kinds())
	}
}

func TestProcessBatch_BundledSDKSkipsPushCalls(t *testing.T) {
	payload := `{"itbl":{"campaignId":100,"templateId":200}}`
	p, client := setupProcessor(t)
	batch := &domain.Batch{
		Account:               baseAccount(),
		IntegrationAttributes: map[string]string{domain.IntegrationAttrSDKVersion: "3.2.1"},
		RuntimeEnvironment:    domain.RuntimeEnvironment{Platform: domain.PlatformIOS},
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
		Events: []domain.Event{
			{
				Type:     domain.EventTypePushMessageOpen,
				PushOpen: &domain.PushMessageOpenEvent{Payload: payload},
			},
			{
				Type:             domain.EventTypePushSubscription,
				PushSubscription: &domain.PushSubscriptionEvent{Action: domain.PushSubscribe, Token: "tok-1"},
			},
		},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range client.calls {
		if c.kind == "trackPushOpen" || c.kind == "registerDeviceToken" {
			t.Errorf("bundled SDK must skip %s", c.kind)
		}
	}
}

func TestProcessBatch_PushSubscription(t *testing.T) {
	sandboxed := true
	tests := []struct {
		name         string
		env          domain.RuntimeEnvironment
		wantPlatform string
		wantApp      string
	}{
		{
			name:         "ios production",
			env:          domain.RuntimeEnvironment{Platform: domain.PlatformIOS},
			wantPlatform: iterable.PlatformAPNS,
			wantApp:      "apns-app",
		},
		{
			name:         "ios sandboxed",
			env:          domain.RuntimeEnvironment{Platform: domain.PlatformIOS, Sandboxed: &sandboxed},
			wantPlatform: iterable.PlatformAPNSSandbox,
			wantApp:      "apns-sandbox-app",
		},
		{
			name:         "android",
			env:          domain.RuntimeEnvironment{Platform: domain.PlatformAndroid},
			wantPlatform: iterable.PlatformGCM,
			wantApp:      "gcm-app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, client := setupProcessor(t)
			batch := &domain.Batch{
				Account:            baseAccount(),
				RuntimeEnvironment: tt.env,
				UserIdentities: []domain.UserIdentity{
					{Type: domain.IdentityEmail, Value: "user@example.com"},
				},
				Events: []domain.Event{
					{
						Type:             domain.EventTypePushSubscription,
						PushSubscription: &domain.PushSubscriptionEvent{Action: domain.PushSubscribe, Token: "tok-1"},
					},
				},
			}

			if err := p.ProcessBatch(context.Background(), batch); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var reg *iterable.RegisterDeviceTokenRequest
			for _, c := range client.calls {
				if c.kind == "registerDeviceToken" {
					reg = c.req.(*iterable.RegisterDeviceTokenRequest)
				}
			}
			if reg == nil {
				t.Fatalf("expected registerDeviceToken, got %v", client.kinds())
			}
			if reg.Device.Platform != tt.wantPlatform || reg.Device.ApplicationName != tt.wantApp {
				t.Errorf("unexpected device: %+v", reg.Device)
			}
			if reg.Device.Token != "tok-1" || reg.Email != "user@example.com" {
				t.Errorf("unexpected request: %+v", reg)
			}
		})
	}
}

func TestProcessBatch_PushSubscriptionUnsupportedPlatform(t *testing.T) {
	p, _ := setupProcessor(t)
	batch := &domain.Batch{
		Account:            baseAccount(),
		RuntimeEnvironment: domain.RuntimeEnvironment{Platform: domain.PlatformMobileWeb},
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
		Events: []domain.Event{
			{
				Type:             domain.EventTypePushSubscription,
				PushSubscription: &domain.PushSubscriptionEvent{Action: domain.PushSubscribe, Token: "tok-1"},
			},
		},
	}

	err := p.ProcessBatch(context.Background(), batch)
	if !errors.Is(err, ErrUnsupportedEnvironment) {
		t.Errorf("expected ErrUnsupportedEnvironment, got %v", err)
	}
}

func TestProcessBatch_PushUnsubscribeIsNoOp(t *testing.T) {
	p, client := setupProcessor(t)
	batch := &domain.Batch{
		Account:            baseAccount(),
		RuntimeEnvironment: domain.RuntimeEnvironment{Platform: domain.PlatformIOS},
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
		Events: []domain.Event{
			{
				Type:             domain.EventTypePushSubscription,
				PushSubscription: &domain.PushSubscriptionEvent{Action: domain.PushUnsubscribe, Token: "tok-1"},
			},
		},
	}

	if err := p.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range client.calls {
		if c.kind == "registerDeviceToken" {
			t.Error("unsubscribe must not register a token")
		}
	}
}

func TestProcessBatch_OutboundRejection(t *testing.T) {
	p, client := setupProcessor(t)
	client.failOps["updateUser"] = &iterable.TransportError{Status: 500, Body: "boom"}
	batch := &domain.Batch{
		Account: baseAccount(),
		UserIdentities: []domain.UserIdentity{
			{Type: domain.IdentityEmail, Value: "user@example.com"},
		},
	}

	err := p.ProcessBatch(context.Background(), batch)
	var transportErr *iterable.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected a transport error, got %v", err)
	}
	if transportErr.Status != 500 {
		t.Errorf("unexpected status %d", transportErr.Status)
	}
}

func TestProcessAudienceChange(t *testing.T) {
	p, client := setupProcessor(t)
	req := &domain.AudienceRequest{
		ID:      "aud-1",
		Account: baseAccount(),
		UserProfiles: []domain.UserProfile{
			{
				UserIdentities: []domain.UserIdentity{{Type: domain.IdentityEmail, Value: "a@example.com"}},
				Audiences: []domain.Audience{
					{ListID: 5, Action: domain.AudienceAdd},
					{ListID: 7, Action: domain.AudienceDelete},
				},
			},
		},
	}

	outcome, err := p.ProcessAudienceChange(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Failed() {
		t.Errorf("unexpected failure: %+v", outcome)
	}
	if len(outcome.Lists) != 2 {
		t.Fatalf("expected 2 list outcomes, got %+v", outcome.Lists)
	}
	if outcome.Lists[0].ListID != 5 || outcome.Lists[0].Op != "subscribe" {
		t.Errorf("unexpected first outcome: %+v", outcome.Lists[0])
	}
	if outcome.Lists[1].ListID != 7 || outcome.Lists[1].Op != "unsubscribe" {
		t.Errorf("unexpected second outcome: %+v", outcome.Lists[1])
	}
	if got := client.kinds(); len(got) != 2 {
		t.Errorf("unexpected calls: %v", got)
	}
}

func TestProcessAudienceChange_OneListFailureDoesNotBlockOthers(t *testing.T) {
	p, client := setupProcessor(t)
	client.failOps["listUnsubscribe"] = fmt.Errorf("connection refused")
	req := &domain.AudienceRequest{
		Account: baseAccount(),
		UserProfiles: []domain.UserProfile{
			{
				UserIdentities: []domain.UserIdentity{{Type: domain.IdentityEmail, Value: "a@example.com"}},
				Audiences: []domain.Audience{
					{ListID: 5, Action: domain.AudienceAdd},
					{ListID: 7, Action: domain.AudienceDelete},
					{ListID: 9, Action: domain.AudienceAdd},
				},
			},
		},
	}

	outcome, err := p.ProcessAudienceChange(context.Background(), req)
	if err == nil {
		t.Fatal("expected joined error for the failed list")
	}
	if !outcome.Failed() {
		t.Error("outcome must report the failure")
	}
	if len(outcome.Lists) != 3 {
		t.Fatalf("all lists must still be attempted, got %+v", outcome.Lists)
	}
	// Additions flush in ascending list order before removals.
	wantKinds := []string{"listSubscribe", "listSubscribe", "listUnsubscribe"}
	got := client.kinds()
	if len(got) != len(wantKinds) {
		t.Fatalf("unexpected calls: %v", got)
	}
	for i, kind := range wantKinds {
		if got[i] != kind {
			t.Errorf("call %d: got %s, want %s", i, got[i], kind)
		}
	}
}

func TestProcessAudienceChange_PositiveFailCount(t *testing.T) {
	client := &failCountClient{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	p := NewProcessor(client, nil, nil, logger)

	req := &domain.AudienceRequest{
		Account: baseAccount(),
		UserProfiles: []domain.UserProfile{
			{
				UserIdentities: []domain.UserIdentity{{Type: domain.IdentityEmail, Value: "a@example.com"}},
				Audiences:      []domain.Audience{{ListID: 5, Action: domain.AudienceAdd}},
			},
		},
	}

	outcome, err := p.ProcessAudienceChange(context.Background(), req)
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError for positive fail count, got %v", err)
	}
	if !outcome.Failed() {
		t.Error("outcome must report the failure")
	}
	if outcome.Lists[0].FailCount != 1 {
		t.Errorf("fail count must be carried through, got %+v", outcome.Lists[0])
	}
}

// failCountClient answers every list call with a positive fail count.
type failCountClient struct {
	fakeClient
}

func (f *failCountClient) ListSubscribe(_ context.Context, _ string, req *iterable.SubscribeRequest) (*iterable.ListResponse, error) {
	return &iterable.ListResponse{SuccessCount: len(req.Subscribers) - 1, FailCount: 1}, nil
}
