package domain

// AudienceAction is the membership change requested for one list.
type AudienceAction string

const (
	AudienceAdd    AudienceAction = "add"
	AudienceDelete AudienceAction = "delete"
)

// Audience is one list-membership flag on a user profile.
type Audience struct {
	ListID int            `json:"list_id"`
	Action AudienceAction `json:"action"`
}

// UserProfile is one user inside an audience membership change request.
type UserProfile struct {
	MpID           string         `json:"mpid,omitempty"`
	UserIdentities []UserIdentity `json:"user_identities,omitempty"`
	Audiences      []Audience     `json:"audiences,omitempty"`
}

// AudienceRequest asks for a set of users to be added to or removed from
// marketing lists. Like a Batch it is request-scoped.
type AudienceRequest struct {
	ID           string        `json:"id,omitempty"`
	Account      Account       `json:"account"`
	UserProfiles []UserProfile `json:"user_profiles,omitempty"`
}
