package pipeline

import (
	"sort"

	"iterable-forwarder/internal/domain"
	"iterable-forwarder/internal/iterable"
)

// AudienceDiff groups the users to add to and remove from each list,
// derived from per-profile action flags. Built once per audience request,
// consumed once, then discarded.
type AudienceDiff struct {
	Additions map[int][]iterable.APIUser
	Removals  map[int][]iterable.APIUser
}

// BuildAudienceDiff resolves each profile's identity and groups its list
// flags. Profiles that resolve no email cannot be addressed by the list
// endpoints and are skipped entirely.
func BuildAudienceDiff(profiles []domain.UserProfile, settings *domain.Settings) *AudienceDiff {
	diff := &AudienceDiff{
		Additions: make(map[int][]iterable.APIUser),
		Removals:  make(map[int][]iterable.APIUser),
	}
	for _, profile := range profiles {
		resolved := ResolveIdentity(profile.UserIdentities, settings, profile.MpID)
		if resolved.Email == "" {
			continue
		}
		user := iterable.APIUser{Email: resolved.Email, UserID: resolved.UserID}
		for _, audience := range profile.Audiences {
			switch audience.Action {
			case domain.AudienceAdd:
				diff.Additions[audience.ListID] = append(diff.Additions[audience.ListID], user)
			case domain.AudienceDelete:
				diff.Removals[audience.ListID] = append(diff.Removals[audience.ListID], user)
			}
		}
	}
	return diff
}

// ListIDs returns the list ids of one side of the diff in ascending order
// so flushing is deterministic.
func ListIDs(side map[int][]iterable.APIUser) []int {
	ids := make([]int, 0, len(side))
	for id := range side {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
