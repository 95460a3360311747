package domain

// UserIdentityType classifies a user identity value.
type UserIdentityType string

const (
	IdentityEmail    UserIdentityType = "email"
	IdentityCustomer UserIdentityType = "customer_id"
	IdentityFacebook UserIdentityType = "facebook"
	IdentityGoogle   UserIdentityType = "google"
	IdentityOther    UserIdentityType = "other"
)

type UserIdentity struct {
	Type  UserIdentityType `json:"type"`
	Value string           `json:"value"`
}

// DeviceIdentityType classifies a device-level identifier.
type DeviceIdentityType string

const (
	DeviceIOSVendorID         DeviceIdentityType = "ios_vendor_id"
	DeviceIOSAdvertisingID    DeviceIdentityType = "ios_advertising_id"
	DeviceGoogleAdvertisingID DeviceIdentityType = "google_advertising_id"
	DeviceAndroidID           DeviceIdentityType = "android_id"
	DevicePushToken           DeviceIdentityType = "push_token"
)

type DeviceIdentity struct {
	Type  DeviceIdentityType `json:"type"`
	Value string             `json:"value"`
}

// Platform tags the runtime environment a batch originated from.
type Platform string

const (
	PlatformIOS       Platform = "ios"
	PlatformTVOS      Platform = "tvos"
	PlatformAndroid   Platform = "android"
	PlatformMobileWeb Platform = "mobileweb"
	PlatformUnknown   Platform = "unknown"
)

// RuntimeEnvironment describes the device platform a batch came from.
// Sandboxed is only meaningful for iOS and is nil when the host did not
// report it.
type RuntimeEnvironment struct {
	Platform   Platform         `json:"platform"`
	Sandboxed  *bool            `json:"sandboxed,omitempty"`
	Identities []DeviceIdentity `json:"identities,omitempty"`
}

// IntegrationAttrSDKVersion marks that the destination's native SDK is
// bundled in the client app, which makes server-side push tracking and
// token registration redundant.
const IntegrationAttrSDKVersion = "Iterable.sdkVersion"

// Batch is one inbound event-processing request: ordered events plus the
// shared user and account context they are interpreted against. It is
// request-scoped; nothing in it survives past processing.
type Batch struct {
	ID                     string             `json:"id,omitempty"`
	Events                 []Event            `json:"events,omitempty"`
	UserIdentities         []UserIdentity     `json:"user_identities,omitempty"`
	UserAttributes         map[string]string  `json:"user_attributes,omitempty"`
	Account                Account            `json:"account"`
	RuntimeEnvironment     RuntimeEnvironment `json:"runtime_environment"`
	MpID                   string             `json:"mpid,omitempty"`
	DeviceApplicationStamp string             `json:"device_application_stamp,omitempty"`
	IntegrationAttributes  map[string]string  `json:"integration_attributes,omitempty"`
}

// HasBundledSDK reports whether the batch metadata declares the native SDK.
func (b *Batch) HasBundledSDK() bool {
	return b.IntegrationAttributes[IntegrationAttrSDKVersion] != ""
}

// DeviceIdentityValue returns the first device identity of the given type,
// or "" when absent.
func (e *RuntimeEnvironment) DeviceIdentityValue(t DeviceIdentityType) string {
	for _, id := range e.Identities {
		if id.Type == t {
			return id.Value
		}
	}
	return ""
}
