package domain

// SettingDescriptor describes one account or connection setting the
// integration accepts, with its required/default/confidential markers.
type SettingDescriptor struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Type         string `json:"type"` // "text", "boolean", "integer"
	Required     bool   `json:"required"`
	Confidential bool   `json:"confidential,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Registration is the static capability declaration for this integration:
// what event types and platforms it handles and which settings it reads.
type Registration struct {
	Name                       string               `json:"name"`
	Version                    string               `json:"version"`
	Description                string               `json:"description"`
	PushMessagingProviderID    string               `json:"push_messaging_provider_id"`
	SupportedEventTypes        []EventType          `json:"supported_event_types"`
	SupportedRuntimePlatforms  []Platform           `json:"supported_runtime_platforms"`
	PermittedUserIdentities    []UserIdentityType   `json:"permitted_user_identities"`
	PermittedDeviceIdentities  []DeviceIdentityType `json:"permitted_device_identities"`
	AccountSettings            []SettingDescriptor  `json:"account_settings"`
	ConnectionSettings         []SettingDescriptor  `json:"connection_settings"`
	AudienceAccountSettings    []SettingDescriptor  `json:"audience_account_settings"`
	AudienceConnectionSettings []SettingDescriptor  `json:"audience_connection_settings"`
}

// DefaultRegistration returns the descriptor this service registers with
// the event-ingestion host.
func DefaultRegistration() Registration {
	apiKey := SettingDescriptor{
		Name:         SettingAPIKey,
		Label:        "API Key",
		Type:         "text",
		Required:     true,
		Confidential: true,
		Description:  "API key used to connect to the Iterable API - see the Integrations section of your Iterable account.",
	}
	userIDField := SettingDescriptor{
		Name:         SettingUserIDField,
		Label:        "User ID",
		Type:         "text",
		Required:     true,
		DefaultValue: UserIDFieldCustomerID,
		Description:  "Select which user identity to forward to Iterable as your customer's user ID.",
	}

	return Registration{
		Name:                    "Iterable",
		Version:                 "1.6.0",
		Description:             "Iterable makes consumer growth marketing and user engagement simple.",
		PushMessagingProviderID: "itbl",
		SupportedEventTypes: []EventType{
			EventTypeCustom,
			EventTypePushSubscription,
			EventTypePushMessageReceipt,
			EventTypePushMessageOpen,
			EventTypeUserIdentityChange,
			EventTypeProductAction,
		},
		SupportedRuntimePlatforms: []Platform{
			PlatformAndroid,
			PlatformIOS,
			PlatformMobileWeb,
			PlatformUnknown,
		},
		PermittedUserIdentities: []UserIdentityType{
			IdentityEmail,
			IdentityCustomer,
		},
		PermittedDeviceIdentities: []DeviceIdentityType{
			DevicePushToken,
			DeviceIOSVendorID,
			DeviceAndroidID,
			DeviceGoogleAdvertisingID,
		},
		AccountSettings: []SettingDescriptor{
			apiKey,
			{
				Name:        SettingGCMName,
				Label:       "GCM Push Integration Name",
				Type:        "text",
				Description: "GCM integration name set up in the Mobile Push section of your Iterable account.",
			},
			{
				Name:        SettingAPNSSandboxName,
				Label:       "APNS Sandbox Integration Name",
				Type:        "text",
				Description: "APNS Sandbox integration name set up in the Mobile Push section of your Iterable account.",
			},
			{
				Name:        SettingAPNSName,
				Label:       "APNS Production Integration Name",
				Type:        "text",
				Description: "APNS Production integration name set up in the Mobile Push section of your Iterable account.",
			},
			{
				Name:         SettingCoerceStrings,
				Label:        "Coerce Strings to Scalars",
				Type:         "boolean",
				DefaultValue: "true",
				Description:  "If enabled, string attributes are coerced into scalar types (integer, boolean, and float).",
			},
		},
		ConnectionSettings:      []SettingDescriptor{userIDField},
		AudienceAccountSettings: []SettingDescriptor{apiKey, userIDField},
		AudienceConnectionSettings: []SettingDescriptor{
			{
				Name:        SettingListID,
				Label:       "List ID",
				Type:        "integer",
				Required:    true,
				Description: "The ID of the Iterable list to populate with the users from this segment.",
			},
		},
	}
}
