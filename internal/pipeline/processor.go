package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"iterable-forwarder/internal/domain"
	"iterable-forwarder/internal/iterable"
)

// AttemptRecord is one outbound call outcome handed to the audit log.
type AttemptRecord struct {
	JobID          string
	RequestKind    string
	Endpoint       string
	Status         string
	HTTPStatusCode *int
	AppCode        string
	DurationMs     int
	ErrorMessage   string
}

// AttemptRecorder persists outbound call outcomes. Implementations must
// not fail the pipeline; persistence errors are theirs to log.
type AttemptRecorder interface {
	Record(ctx context.Context, rec AttemptRecord)
}

// Processor translates inbound batches and audience changes into outbound
// API calls. It holds no per-request state; every intermediate structure
// is scoped to one Process call.
type Processor struct {
	client   iterable.Client
	codec    Codec
	recorder AttemptRecorder
	logger   *slog.Logger
}

// NewProcessor creates a processor around an outbound client. recorder may
// be nil when no audit log is wanted.
func NewProcessor(client iterable.Client, codec Codec, recorder AttemptRecorder, logger *slog.Logger) *Processor {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Processor{
		client:   client,
		codec:    codec,
		recorder: recorder,
		logger:   logger,
	}
}

// ProcessBatch runs one inbound batch through the pipeline. Steps run in a
// fixed order because later calls depend on the identity established by
// earlier ones: email reconciliation, then the user update, then push-open
// dispatch, then the remaining events by type. The first failure aborts
// the rest of the batch; calls already sent are not rolled back.
func (p *Processor) ProcessBatch(ctx context.Context, batch *domain.Batch) error {
	settings, err := batch.Account.ParseSettings()
	if err != nil {
		return fmt.Errorf("invalid account settings: %w", err)
	}

	sortEventsByTimestamp(batch.Events)

	if err := InsertPlaceholderEmail(batch, settings); err != nil {
		return err
	}
	if err := p.reconcileEmails(ctx, batch, settings); err != nil {
		return err
	}
	if err := p.updateUser(ctx, batch, settings); err != nil {
		return err
	}
	if err := p.dispatchPushOpens(ctx, batch, settings); err != nil {
		return err
	}

	for i := range batch.Events {
		event := &batch.Events[i]
		switch event.Type {
		case domain.EventTypeCustom:
			err = p.handleCustomEvent(ctx, batch, settings, event)
		case domain.EventTypeProductAction:
			err = p.handleProductAction(ctx, batch, settings, event)
		case domain.EventTypePushSubscription:
			err = p.handlePushSubscription(ctx, batch, settings, event)
		case domain.EventTypePushMessageReceipt:
			err = p.handlePushReceipt(ctx, batch, settings, event)
		case domain.EventTypePushMessageOpen,
			domain.EventTypeUserIdentityChange,
			domain.EventTypeUserAttributeChange:
			// Push opens are dispatched batch-level above; identity changes
			// drive email reconciliation; attribute changes are covered by
			// the batch's user update.
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// sortEventsByTimestamp orders events ascending; ties keep original order.
func sortEventsByTimestamp(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}

// reconcileEmails walks identity-change events in event order and issues
// one updateEmail call per qualifying event. An event that adds an email
// with no removal replaces the placeholder; an event with both an added
// and a removed email replaces the old address with the new one.
func (p *Processor) reconcileEmails(ctx context.Context, batch *domain.Batch, settings *domain.Settings) error {
	placeholder := ""
	for i := range batch.Events {
		event := &batch.Events[i]
		if event.Type != domain.EventTypeUserIdentityChange || event.IdentityChange == nil {
			continue
		}
		change := event.IdentityChange
		if len(change.Added) == 0 || change.Added[0].Type != domain.IdentityEmail || change.Added[0].Value == "" {
			continue
		}

		req := &iterable.UpdateEmailRequest{NewEmail: change.Added[0].Value}
		if len(change.Removed) == 0 {
			// Email added where only a placeholder existed before.
			if placeholder == "" {
				var err error
				placeholder, err = PlaceholderEmail(batch, settings)
				if err != nil {
					return err
				}
			}
			req.CurrentEmail = placeholder
		} else {
			if change.Removed[0].Value == "" {
				continue
			}
			req.CurrentEmail = change.Removed[0].Value
		}

		err := p.call(ctx, batch.ID, "updateEmail", iterable.EndpointUpdateEmail, func() (*iterable.APIResponse, error) {
			return p.client.UpdateEmail(ctx, settings.APIKey, req)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// updateUser sends the batch's resolved identity and attributes. Skipped
// entirely when neither an email nor a user id resolves.
func (p *Processor) updateUser(ctx context.Context, batch *domain.Batch, settings *domain.Settings) error {
	resolved := ResolveIdentity(batch.UserIdentities, settings, batch.MpID)
	if !resolved.Usable() {
		return nil
	}
	req := &iterable.UserUpdateRequest{
		Email:      resolved.Email,
		UserID:     resolved.UserID,
		DataFields: ConvertAttributes(batch.UserAttributes, settings.CoerceStringsToScalars),
	}
	return p.call(ctx, batch.ID, "userUpdate", iterable.EndpointUserUpdate, func() (*iterable.APIResponse, error) {
		return p.client.UpdateUser(ctx, settings.APIKey, req)
	})
}

// dispatchPushOpens sends one trackPushOpen per push-open event carrying a
// vendor block. Skipped wholesale when the bundled SDK already tracks
// opens on-device.
func (p *Processor) dispatchPushOpens(ctx context.Context, batch *domain.Batch, settings *domain.Settings) error {
	if batch.HasBundledSDK() {
		return nil
	}
	for i := range batch.Events {
		event := &batch.Events[i]
		if event.Type != domain.EventTypePushMessageOpen || event.PushOpen == nil {
			continue
		}
		if event.PushOpen.Payload == "" || len(batch.UserIdentities) == 0 {
			continue
		}
		err := p.trackPushOpen(ctx, batch, settings, event.PushOpen.Payload, event.Timestamp, "push-open")
		if err != nil {
			return err
		}
	}
	return nil
}

// trackPushOpen is the shared open/receipt dispatch: resolve the user,
// extract the vendor block, send the call. A payload without a vendor
// block is a no-op; a user with no resolvable identity is fatal.
func (p *Processor) trackPushOpen(ctx context.Context, batch *domain.Batch, settings *domain.Settings, payload string, timestamp int64, what string) error {
	resolved := ResolveIdentity(batch.UserIdentities, settings, batch.MpID)
	if !resolved.Usable() {
		return fmt.Errorf("%w: cannot process %s event, user has no email or customer id", ErrIdentityResolution, what)
	}

	meta, found, err := ExtractPushMetadata(p.codec, payload, batch.RuntimeEnvironment.Platform)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	req := &iterable.TrackPushOpenRequest{
		Email:      resolved.Email,
		UserID:     resolved.UserID,
		CampaignID: meta.CampaignID,
		TemplateID: meta.TemplateID,
		MessageID:  meta.MessageID,
		CreatedAt:  timestamp / 1000,
	}
	return p.call(ctx, batch.ID, "trackPushOpen", iterable.EndpointTrackPushOpen, func() (*iterable.APIResponse, error) {
		return p.client.TrackPushOpen(ctx, settings.APIKey, req)
	})
}

// handleCustomEvent routes the reserved subscription-update convention,
// and tracks everything else as a generic event. Event attributes are
// always coerced; the account toggle only governs user attributes.
func (p *Processor) handleCustomEvent(ctx context.Context, batch *domain.Batch, settings *domain.Settings, event *domain.Event) error {
	if req, ok := BuildSubscriptionUpdate(event.Custom, batch.UserIdentities); ok {
		return p.call(ctx, batch.ID, "updateSubscriptions", iterable.EndpointUpdateSubscriptions, func() (*iterable.APIResponse, error) {
			return p.client.UpdateSubscriptions(ctx, settings.APIKey, req)
		})
	}

	resolved := ResolveIdentity(batch.UserIdentities, settings, batch.MpID)
	req := &iterable.TrackRequest{
		Email:      resolved.Email,
		UserID:     resolved.UserID,
		EventName:  event.Custom.Name,
		CreatedAt:  event.Timestamp / 1000,
		DataFields: ConvertAttributes(event.Custom.Attributes, true),
	}
	return p.call(ctx, batch.ID, "track", iterable.EndpointTrack, func() (*iterable.APIResponse, error) {
		return p.client.Track(ctx, settings.APIKey, req)
	})
}

// handleProductAction sends a purchase; every other commerce action is a
// no-op.
func (p *Processor) handleProductAction(ctx context.Context, batch *domain.Batch, settings *domain.Settings, event *domain.Event) error {
	action := event.ProductAction
	if action.Action != domain.ProductActionPurchase {
		return nil
	}

	resolved := ResolveIdentity(batch.UserIdentities, settings, batch.MpID)
	req := &iterable.TrackPurchaseRequest{
		User: &iterable.APIUser{
			Email:      resolved.Email,
			UserID:     resolved.UserID,
			DataFields: ConvertAttributes(batch.UserAttributes, settings.CoerceStringsToScalars),
		},
		Total:     action.TotalAmount,
		CreatedAt: event.Timestamp / 1000,
	}
	for _, product := range action.Products {
		req.Items = append(req.Items, convertToCommerceItem(product, settings.CoerceStringsToScalars))
	}
	return p.call(ctx, batch.ID, "trackPurchase", iterable.EndpointTrackPurchase, func() (*iterable.APIResponse, error) {
		return p.client.TrackPurchase(ctx, settings.APIKey, req)
	})
}

// convertToCommerceItem maps a product to a line item. The upstream data
// model has no separate SKU, so the product id fills both fields.
func convertToCommerceItem(product domain.Product, coerce bool) iterable.CommerceItem {
	item := iterable.CommerceItem{
		ID:         product.ID,
		SKU:        product.ID,
		Name:       product.Name,
		Price:      product.Price,
		DataFields: ConvertAttributes(product.Attributes, coerce),
	}
	if product.Quantity != nil {
		item.Quantity = int(*product.Quantity)
	}
	if product.Category != "" {
		item.Categories = []string{product.Category}
	}
	return item
}

// handlePushSubscription registers a device token. Unsubscribes and
// batches with the bundled SDK are no-ops; the platform selects which
// configured integration name and token type to use.
func (p *Processor) handlePushSubscription(ctx context.Context, batch *domain.Batch, settings *domain.Settings, event *domain.Event) error {
	if batch.HasBundledSDK() {
		return nil
	}
	sub := event.PushSubscription
	if sub.Action == domain.PushUnsubscribe {
		return nil
	}

	device := &iterable.Device{Token: sub.Token}
	env := &batch.RuntimeEnvironment
	switch env.Platform {
	case domain.PlatformIOS:
		if env.Sandboxed != nil && *env.Sandboxed {
			device.Platform = iterable.PlatformAPNSSandbox
			device.ApplicationName = settings.APNSSandboxIntegrationName
		} else {
			device.Platform = iterable.PlatformAPNS
			device.ApplicationName = settings.APNSIntegrationName
		}
	case domain.PlatformAndroid:
		device.Platform = iterable.PlatformGCM
		device.ApplicationName = settings.GCMIntegrationName
	default:
		return fmt.Errorf("%w: cannot register device token for platform %q", ErrUnsupportedEnvironment, env.Platform)
	}

	req := &iterable.RegisterDeviceTokenRequest{Device: device}
	for _, identity := range batch.UserIdentities {
		if identity.Type == domain.IdentityEmail {
			req.Email = identity.Value
			break
		}
	}
	if req.Email == "" {
		return fmt.Errorf("%w: cannot register device token, no user email", ErrIdentityResolution)
	}

	return p.call(ctx, batch.ID, "registerDeviceToken", iterable.EndpointRegisterDeviceToken, func() (*iterable.APIResponse, error) {
		return p.client.RegisterDeviceToken(ctx, settings.APIKey, req)
	})
}

// handlePushReceipt mirrors push-open dispatch for receipt events.
func (p *Processor) handlePushReceipt(ctx context.Context, batch *domain.Batch, settings *domain.Settings, event *domain.Event) error {
	if batch.HasBundledSDK() {
		return nil
	}
	receipt := event.PushReceipt
	if receipt.Payload == "" || len(batch.UserIdentities) == 0 {
		return nil
	}
	return p.trackPushOpen(ctx, batch, settings, receipt.Payload, event.Timestamp, "push-receipt")
}

// ListOutcome is the result of one list subscribe/unsubscribe call.
type ListOutcome struct {
	ListID       int    `json:"list_id"`
	Op           string `json:"op"`
	Subscribers  int    `json:"subscribers"`
	SuccessCount int    `json:"success_count"`
	FailCount    int    `json:"fail_count"`
	Error        string `json:"error,omitempty"`
}

// AudienceOutcome aggregates the per-list results of one audience change.
type AudienceOutcome struct {
	Lists []ListOutcome `json:"lists"`
}

// Failed reports whether any list call failed.
func (o *AudienceOutcome) Failed() bool {
	for _, l := range o.Lists {
		if l.Error != "" {
			return true
		}
	}
	return false
}

// ProcessAudienceChange diffs the profiles into per-list batches and
// issues one subscribe call per addition list and one unsubscribe call
// per removal list. One list's failure never blocks the other lists'
// calls; all failures are joined into the returned error alongside the
// per-list outcomes.
func (p *Processor) ProcessAudienceChange(ctx context.Context, req *domain.AudienceRequest) (*AudienceOutcome, error) {
	settings, err := req.Account.ParseSettings()
	if err != nil {
		return nil, fmt.Errorf("invalid account settings: %w", err)
	}

	diff := BuildAudienceDiff(req.UserProfiles, settings)
	outcome := &AudienceOutcome{}
	var errs []error

	for _, listID := range ListIDs(diff.Additions) {
		subscribers := diff.Additions[listID]
		resp, callErr := p.listCall(ctx, req.ID, "listSubscribe", iterable.EndpointListSubscribe, func() (*iterable.ListResponse, error) {
			return p.client.ListSubscribe(ctx, settings.APIKey, &iterable.SubscribeRequest{
				ListID:      listID,
				Subscribers: subscribers,
			})
		})
		outcome.Lists = append(outcome.Lists, listOutcome(listID, "subscribe", len(subscribers), resp, callErr))
		if callErr != nil {
			errs = append(errs, fmt.Errorf("list %d subscribe: %w", listID, callErr))
		}
	}

	for _, listID := range ListIDs(diff.Removals) {
		subscribers := diff.Removals[listID]
		resp, callErr := p.listCall(ctx, req.ID, "listUnsubscribe", iterable.EndpointListUnsubscribe, func() (*iterable.ListResponse, error) {
			return p.client.ListUnsubscribe(ctx, settings.APIKey, &iterable.UnsubscribeRequest{
				ListID:      listID,
				Subscribers: subscribers,
			})
		})
		outcome.Lists = append(outcome.Lists, listOutcome(listID, "unsubscribe", len(subscribers), resp, callErr))
		if callErr != nil {
			errs = append(errs, fmt.Errorf("list %d unsubscribe: %w", listID, callErr))
		}
	}

	return outcome, errors.Join(errs...)
}

func listOutcome(listID int, op string, subscribers int, resp *iterable.ListResponse, err error) ListOutcome {
	out := ListOutcome{ListID: listID, Op: op, Subscribers: subscribers}
	if resp != nil {
		out.SuccessCount = resp.SuccessCount
		out.FailCount = resp.FailCount
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// call executes one outbound API call, classifies the response, and
// records the attempt.
func (p *Processor) call(ctx context.Context, jobID, kind, endpoint string, fn func() (*iterable.APIResponse, error)) error {
	start := time.Now()
	resp, err := fn()
	if err == nil && !resp.Success() {
		err = &RejectedError{Op: kind, Code: resp.Code, Msg: resp.Msg}
	}
	p.record(ctx, jobID, kind, endpoint, start, appCode(resp), err)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// listCall is the list-endpoint variant of call: a positive fail count is
// an application-level rejection for that list.
func (p *Processor) listCall(ctx context.Context, jobID, kind, endpoint string, fn func() (*iterable.ListResponse, error)) (*iterable.ListResponse, error) {
	start := time.Now()
	resp, err := fn()
	if err == nil && resp.FailCount > 0 {
		err = &RejectedError{Op: kind, Msg: fmt.Sprintf("positive fail count: %d", resp.FailCount)}
	}
	code := ""
	if err == nil {
		code = "Success"
	}
	p.record(ctx, jobID, kind, endpoint, start, code, err)
	return resp, err
}

func appCode(resp *iterable.APIResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Code
}

func (p *Processor) record(ctx context.Context, jobID, kind, endpoint string, start time.Time, code string, err error) {
	elapsed := int(time.Since(start).Milliseconds())

	rec := AttemptRecord{
		JobID:       jobID,
		RequestKind: kind,
		Endpoint:    endpoint,
		Status:      "success",
		AppCode:     code,
		DurationMs:  elapsed,
	}
	if err != nil {
		rec.Status = "failed"
		rec.ErrorMessage = err.Error()
		var transportErr *iterable.TransportError
		if errors.As(err, &transportErr) && transportErr.Status != 0 {
			status := transportErr.Status
			rec.HTTPStatusCode = &status
		}
		p.logger.Warn("outbound call failed",
			"job_id", jobID,
			"request_kind", kind,
			"error", err,
			"duration_ms", elapsed,
		)
	} else {
		p.logger.Info("outbound call sent",
			"job_id", jobID,
			"request_kind", kind,
			"duration_ms", elapsed,
		)
	}

	if p.recorder != nil {
		p.recorder.Record(ctx, rec)
	}
}
