package pipeline

import (
	"strconv"
	"strings"

	"iterable-forwarder/internal/domain"
	"iterable-forwarder/internal/iterable"
)

// A custom event with this name (case-insensitive) is a subscription-state
// update rather than a generic tracked event.
const SubscriptionsUpdatedEventName = "subscriptionsUpdated"

// Reserved attribute keys on a subscription-update event.
const (
	AttrEmailListIDs               = "emailListIds"
	AttrUnsubscribedChannelIDs     = "unsubscribedChannelIds"
	AttrUnsubscribedMessageTypeIDs = "unsubscribedMessageTypeIds"
	AttrCampaignID                 = "campaignId"
	AttrTemplateID                 = "templateId"
)

// BuildSubscriptionUpdate recognizes the reserved custom-event convention
// and parses it into a subscription update carrying the batch's email
// identity. The second return is false when the event name does not match,
// which is a signal to fall through to generic tracking, not an error.
// Malformed attribute values omit that field rather than failing the parse.
func BuildSubscriptionUpdate(event *domain.CustomEvent, identities []domain.UserIdentity) (*iterable.UpdateSubscriptionsRequest, bool) {
	if !strings.EqualFold(event.Name, SubscriptionsUpdatedEventName) {
		return nil, false
	}

	req := &iterable.UpdateSubscriptionsRequest{
		EmailListIDs:               parseIntList(event.Attributes, AttrEmailListIDs),
		UnsubscribedChannelIDs:     parseIntList(event.Attributes, AttrUnsubscribedChannelIDs),
		UnsubscribedMessageTypeIDs: parseIntList(event.Attributes, AttrUnsubscribedMessageTypeIDs),
		CampaignID:                 parseIntScalar(event.Attributes[AttrCampaignID]),
		TemplateID:                 parseIntScalar(event.Attributes[AttrTemplateID]),
	}

	for _, identity := range identities {
		if identity.Type == domain.IdentityEmail {
			req.Email = identity.Value
		}
	}
	return req, true
}

// parseIntList parses a comma-separated integer attribute. An absent
// attribute yields nil (no change); a present-but-empty one yields an
// empty non-nil list (clear everything); any malformed entry drops the
// whole field back to nil.
func parseIntList(attrs map[string]string, key string) []int {
	csv, ok := attrs[key]
	if !ok {
		return nil
	}
	ids := []int{}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}
		ids = append(ids, n)
	}
	return ids
}

func parseIntScalar(value string) *int {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return &n
}
