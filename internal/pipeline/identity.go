package pipeline

import (
	"fmt"

	"iterable-forwarder/internal/domain"
)

// PlaceholderEmailDomain is appended to a synthesized id to form the
// stand-in email used until a real one is observed.
const PlaceholderEmailDomain = "@placeholder.email"

// ResolvedIdentity is the (email, userId) pair sent outbound.
type ResolvedIdentity struct {
	Email  string
	UserID string
}

// Usable reports whether the identity can address a user at all.
func (r ResolvedIdentity) Usable() bool {
	return r.Email != "" || r.UserID != ""
}

// ResolveIdentity derives the outbound identity from an identity set.
// The last EMAIL identity wins; the last CUSTOMER identity sets the user
// id unless the account forwards the platform user id instead, in which
// case the platform id is used and an email is synthesized from it when
// none exists.
func ResolveIdentity(identities []domain.UserIdentity, settings *domain.Settings, mpid string) ResolvedIdentity {
	var resolved ResolvedIdentity
	for _, identity := range identities {
		switch identity.Type {
		case domain.IdentityEmail:
			resolved.Email = identity.Value
		case domain.IdentityCustomer:
			if !settings.UseMpID() {
				resolved.UserID = identity.Value
			}
		}
	}
	if settings.UseMpID() {
		resolved.UserID = mpid
		if resolved.Email == "" && mpid != "" {
			resolved.Email = mpid + PlaceholderEmailDomain
		}
	}
	return resolved
}

// PlaceholderEmail synthesizes a deterministic stand-in email for a batch
// with no real email identity. Sources are tried in priority order:
// platform user id (platform-id mode only), platform device identifiers,
// customer id, then the device application stamp. When every source is
// empty the user cannot be addressed and ErrIdentityResolution is
// returned.
func PlaceholderEmail(batch *domain.Batch, settings *domain.Settings) (string, error) {
	var id string
	if settings.UseMpID() {
		id = batch.MpID
	} else {
		env := &batch.RuntimeEnvironment
		switch env.Platform {
		case domain.PlatformIOS, domain.PlatformTVOS:
			id = env.DeviceIdentityValue(domain.DeviceIOSVendorID)
			if id == "" {
				id = env.DeviceIdentityValue(domain.DeviceIOSAdvertisingID)
			}
		case domain.PlatformAndroid:
			id = env.DeviceIdentityValue(domain.DeviceGoogleAdvertisingID)
			if id == "" {
				id = env.DeviceIdentityValue(domain.DeviceAndroidID)
			}
		}

		if id == "" {
			for _, identity := range batch.UserIdentities {
				if identity.Type == domain.IdentityCustomer {
					id = identity.Value
					break
				}
			}
		}

		if id == "" {
			id = batch.DeviceApplicationStamp
		}
	}

	if id == "" {
		return "", fmt.Errorf("%w: no email and no source for a placeholder", ErrIdentityResolution)
	}
	return id + PlaceholderEmailDomain, nil
}

// InsertPlaceholderEmail appends a synthesized EMAIL identity to the
// batch's identity set when no EMAIL identity is present.
func InsertPlaceholderEmail(batch *domain.Batch, settings *domain.Settings) error {
	for _, identity := range batch.UserIdentities {
		if identity.Type == domain.IdentityEmail {
			return nil
		}
	}
	placeholder, err := PlaceholderEmail(batch, settings)
	if err != nil {
		return err
	}
	batch.UserIdentities = append(batch.UserIdentities, domain.UserIdentity{
		Type:  domain.IdentityEmail,
		Value: placeholder,
	})
	return nil
}
