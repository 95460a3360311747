package domain

import "fmt"

// Setting names as the host presents them in the account settings map.
const (
	SettingAPIKey          = "apiKey"
	SettingGCMName         = "gcmIntegrationName"
	SettingAPNSName        = "apnsProdIntegrationName"
	SettingAPNSSandboxName = "apnsSandboxIntegrationName"
	SettingListID          = "listId"
	SettingCoerceStrings   = "coerceStringsToScalars"
	SettingUserIDField     = "userIdField"

	UserIDFieldCustomerID = "customerId"
	UserIDFieldMpID       = "mpid"
)

// Account is the read-only configuration the host attaches to a request.
type Account struct {
	ID       int64             `json:"id,omitempty"`
	Settings map[string]string `json:"settings"`
}

// Settings is the validated, typed view of an account's settings map.
type Settings struct {
	APIKey                     string
	GCMIntegrationName         string
	APNSIntegrationName        string
	APNSSandboxIntegrationName string
	CoerceStringsToScalars     bool
	UserIDField                string
}

// UseMpID reports whether the outbound user id should be the platform
// user id rather than the customer id.
func (s *Settings) UseMpID() bool {
	return s.UserIDField == UserIDFieldMpID
}

// ParseSettings validates the raw settings map once, applying defaults.
// The API key is required; everything else is optional.
func (a Account) ParseSettings() (*Settings, error) {
	s := &Settings{
		APIKey:                     a.Settings[SettingAPIKey],
		GCMIntegrationName:         a.Settings[SettingGCMName],
		APNSIntegrationName:        a.Settings[SettingAPNSName],
		APNSSandboxIntegrationName: a.Settings[SettingAPNSSandboxName],
		UserIDField:                a.Settings[SettingUserIDField],
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("account setting %q is required", SettingAPIKey)
	}
	if s.UserIDField == "" {
		s.UserIDField = UserIDFieldCustomerID
	}
	if s.UserIDField != UserIDFieldCustomerID && s.UserIDField != UserIDFieldMpID {
		return nil, fmt.Errorf("account setting %q must be %q or %q, got %q",
			SettingUserIDField, UserIDFieldCustomerID, UserIDFieldMpID, s.UserIDField)
	}
	// Absent or unparseable values disable coercion.
	s.CoerceStringsToScalars = a.Settings[SettingCoerceStrings] == "true"
	return s, nil
}
