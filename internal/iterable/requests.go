// Package iterable holds the outbound request and response shapes of the
// Iterable API and the client capability used to execute them.
package iterable

import "encoding/json"

// Device platforms accepted by the registerDeviceToken endpoint.
const (
	PlatformAPNS        = "APNS"
	PlatformAPNSSandbox = "APNS_SANDBOX"
	PlatformGCM         = "GCM"
)

// APIUser identifies a user in outbound requests. Either Email or UserID
// may be empty, but not both.
type APIUser struct {
	Email      string         `json:"email,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

type UserUpdateRequest struct {
	Email      string         `json:"email,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

type TrackRequest struct {
	Email      string         `json:"email,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	EventName  string         `json:"eventName"`
	CreatedAt  int64          `json:"createdAt,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

type CommerceItem struct {
	ID         string         `json:"id"`
	SKU        string         `json:"sku,omitempty"`
	Name       string         `json:"name,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Price      float64        `json:"price"`
	Quantity   int            `json:"quantity,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

type TrackPurchaseRequest struct {
	User      *APIUser       `json:"user"`
	Items     []CommerceItem `json:"items,omitempty"`
	Total     float64        `json:"total"`
	CreatedAt int64          `json:"createdAt,omitempty"`
}

type TrackPushOpenRequest struct {
	Email      string `json:"email,omitempty"`
	UserID     string `json:"userId,omitempty"`
	CampaignID int    `json:"campaignId"`
	TemplateID int    `json:"templateId"`
	MessageID  string `json:"messageId,omitempty"`
	CreatedAt  int64  `json:"createdAt,omitempty"`
}

type Device struct {
	Token           string         `json:"token"`
	Platform        string         `json:"platform"`
	ApplicationName string         `json:"applicationName,omitempty"`
	DataFields      map[string]any `json:"dataFields,omitempty"`
}

type RegisterDeviceTokenRequest struct {
	Email  string  `json:"email,omitempty"`
	Device *Device `json:"device"`
}

type UpdateEmailRequest struct {
	CurrentEmail string `json:"currentEmail"`
	NewEmail     string `json:"newEmail"`
}

// UpdateSubscriptionsRequest carries subscription-state changes. Nil list
// fields mean "no change" and are omitted; empty non-nil lists serialize
// as [] and clear the corresponding state.
type UpdateSubscriptionsRequest struct {
	Email                      string `json:"email,omitempty"`
	EmailListIDs               []int  `json:"emailListIds,omitzero"`
	UnsubscribedChannelIDs     []int  `json:"unsubscribedChannelIds,omitzero"`
	UnsubscribedMessageTypeIDs []int  `json:"unsubscribedMessageTypeIds,omitzero"`
	CampaignID                 *int   `json:"campaignId,omitempty"`
	TemplateID                 *int   `json:"templateId,omitempty"`
}

type SubscribeRequest struct {
	ListID      int       `json:"listId"`
	Subscribers []APIUser `json:"subscribers"`
}

type UnsubscribeRequest struct {
	ListID      int       `json:"listId"`
	Subscribers []APIUser `json:"subscribers"`
}

// APIResponse is the generic response envelope of the tracking endpoints.
type APIResponse struct {
	Msg    string          `json:"msg"`
	Code   string          `json:"code"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Success reports whether the application accepted the request.
func (r *APIResponse) Success() bool {
	return r != nil && r.Code == "Success"
}

// ListResponse is returned by the list subscribe/unsubscribe endpoints.
type ListResponse struct {
	SuccessCount  int      `json:"successCount"`
	FailCount     int      `json:"failCount"`
	InvalidEmails []string `json:"invalidEmails,omitempty"`
}
