package domain

// EventType identifies the variant carried by an Event.
type EventType string

const (
	EventTypeCustom              EventType = "custom_event"
	EventTypePushSubscription    EventType = "push_subscription"
	EventTypePushMessageOpen     EventType = "push_message_open"
	EventTypePushMessageReceipt  EventType = "push_message_receipt"
	EventTypeProductAction       EventType = "product_action"
	EventTypeUserIdentityChange  EventType = "user_identity_change"
	EventTypeUserAttributeChange EventType = "user_attribute_change"
)

// Event is a tagged union over the event variants a batch can carry.
// Exactly one variant pointer matching Type is set; the rest are nil.
// Timestamp is in milliseconds.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`

	Custom           *CustomEvent              `json:"custom_event,omitempty"`
	PushSubscription *PushSubscriptionEvent    `json:"push_subscription,omitempty"`
	PushOpen         *PushMessageOpenEvent     `json:"push_message_open,omitempty"`
	PushReceipt      *PushMessageReceiptEvent  `json:"push_message_receipt,omitempty"`
	ProductAction    *ProductActionEvent       `json:"product_action,omitempty"`
	IdentityChange   *UserIdentityChangeEvent  `json:"user_identity_change,omitempty"`
	AttributeChange  *UserAttributeChangeEvent `json:"user_attribute_change,omitempty"`
}

type CustomEvent struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// PushSubscriptionAction is the direction of a push token change.
type PushSubscriptionAction string

const (
	PushSubscribe   PushSubscriptionAction = "subscribe"
	PushUnsubscribe PushSubscriptionAction = "unsubscribe"
)

type PushSubscriptionEvent struct {
	Action PushSubscriptionAction `json:"action"`
	Token  string                 `json:"token"`
}

// PushMessageOpenEvent carries the vendor payload block of an opened push
// message as an opaque string; its encoding differs by platform.
type PushMessageOpenEvent struct {
	Payload string `json:"payload,omitempty"`
}

type PushMessageReceiptEvent struct {
	Payload string `json:"payload,omitempty"`
}

// ProductActionType is the commerce action performed on the products.
type ProductActionType string

const (
	ProductActionPurchase       ProductActionType = "purchase"
	ProductActionAddToCart      ProductActionType = "add_to_cart"
	ProductActionRemoveFromCart ProductActionType = "remove_from_cart"
	ProductActionCheckout       ProductActionType = "checkout"
	ProductActionRefund         ProductActionType = "refund"
)

type ProductActionEvent struct {
	Action      ProductActionType `json:"action"`
	TotalAmount float64           `json:"total_amount"`
	Products    []Product         `json:"products,omitempty"`
}

type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Category   string            `json:"category,omitempty"`
	Price      float64           `json:"price"`
	Quantity   *float64          `json:"quantity,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type UserIdentityChangeEvent struct {
	Added   []UserIdentity `json:"added,omitempty"`
	Removed []UserIdentity `json:"removed,omitempty"`
}

type UserAttributeChangeEvent struct {
	AttributeName string   `json:"attribute_name"`
	Added         []string `json:"added,omitempty"`
	Removed       []string `json:"removed,omitempty"`
}
