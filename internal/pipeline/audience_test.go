package pipeline

import (
	"reflect"
	"testing"

	"iterable-forwarder/internal/domain"
	"iterable-forwarder/internal/iterable"
)

func TestBuildAudienceDiff(t *testing.T) {
	profiles := []domain.UserProfile{
		{
			UserIdentities: []domain.UserIdentity{
				{Type: domain.IdentityEmail, Value: "a@example.com"},
				{Type: domain.IdentityCustomer, Value: "cust-a"},
			},
			Audiences: []domain.Audience{
				{ListID: 5, Action: domain.AudienceAdd},
				{ListID: 7, Action: domain.AudienceDelete},
			},
		},
		{
			UserIdentities: []domain.UserIdentity{
				{Type: domain.IdentityEmail, Value: "b@example.com"},
			},
			Audiences: []domain.Audience{
				{ListID: 5, Action: domain.AudienceAdd},
			},
		},
	}

	diff := BuildAudienceDiff(profiles, customerIDSettings())

	if got := len(diff.Additions[5]); got != 2 {
		t.Errorf("expected 2 additions for list 5, got %d", got)
	}
	if diff.Additions[5][0].Email != "a@example.com" || diff.Additions[5][0].UserID != "cust-a" {
		t.Errorf("unexpected first addition: %+v", diff.Additions[5][0])
	}
	if got := len(diff.Removals[7]); got != 1 {
		t.Errorf("expected 1 removal for list 7, got %d", got)
	}
	if len(diff.Removals) != 1 || len(diff.Additions) != 1 {
		t.Errorf("unexpected diff shape: %+v", diff)
	}
}

func TestBuildAudienceDiff_SkipsProfilesWithoutEmail(t *testing.T) {
	profiles := []domain.UserProfile{
		{
			UserIdentities: []domain.UserIdentity{
				{Type: domain.IdentityCustomer, Value: "cust-a"},
			},
			Audiences: []domain.Audience{{ListID: 5, Action: domain.AudienceAdd}},
		},
	}

	diff := BuildAudienceDiff(profiles, customerIDSettings())

	if len(diff.Additions) != 0 || len(diff.Removals) != 0 {
		t.Errorf("profile without email must be skipped, got %+v", diff)
	}
}

func TestBuildAudienceDiff_MpIDModeSynthesizesEmail(t *testing.T) {
	profiles := []domain.UserProfile{
		{
			MpID:      "999",
			Audiences: []domain.Audience{{ListID: 3, Action: domain.AudienceAdd}},
		},
	}

	diff := BuildAudienceDiff(profiles, mpidSettings())

	users := diff.Additions[3]
	if len(users) != 1 {
		t.Fatalf("expected 1 addition, got %d", len(users))
	}
	if users[0].Email != "999"+PlaceholderEmailDomain || users[0].UserID != "999" {
		t.Errorf("unexpected user: %+v", users[0])
	}
}

func TestListIDs_Sorted(t *testing.T) {
	side := map[int][]iterable.APIUser{
		9: nil,
		2: nil,
		5: nil,
	}

	got := ListIDs(side)
	if !reflect.DeepEqual(got, []int{2, 5, 9}) {
		t.Errorf("expected ascending ids, got %v", got)
	}
}
