package cloud

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"tribeboard/internal/models"
)

var ignoreLocalState = cmp.Options{
	cmpopts.IgnoreFields(models.Family{}, "SyncMetadata", "UpdatedAt", "Memberships"),
	cmpopts.IgnoreFields(models.UserProfile{}, "SyncMetadata", "UpdatedAt"),
	cmpopts.IgnoreFields(models.Membership{}, "SyncMetadata", "UpdatedAt"),
	cmpopts.EquateApproxTime(0),
}

func TestFamilyRoundTrip(t *testing.T) {
	family := models.NewFamily("fam-1", "The Mawsons", "MAW2024", "user-1")

	got, err := FamilyFromRecord(FamilyToRecord(family))
	if err != nil {
		t.Fatalf("FamilyFromRecord() error = %v", err)
	}
	if diff := cmp.Diff(family, got, ignoreLocalState); diff != "" {
		t.Errorf("family round trip mismatch (-want +got):\n%s", diff)
	}
	if got.RecordID == nil || *got.RecordID != "fam-1" {
		t.Errorf("RecordID = %v, want fam-1", got.RecordID)
	}
}

func TestUserProfileRoundTrip(t *testing.T) {
	avatar := "https://example.com/a.png"
	tests := []struct {
		name   string
		avatar *string
	}{
		{"with avatar", &avatar},
		{"without avatar", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := models.NewUserProfile("user-1", "Alex Mawson", "hash-1")
			profile.AvatarURL = tt.avatar

			rec := UserProfileToRecord(profile)
			if _, present := rec.Fields[FieldAvatarURL]; present != (tt.avatar != nil) {
				t.Errorf("avatar field present = %v, want %v", present, tt.avatar != nil)
			}

			got, err := UserProfileFromRecord(rec)
			if err != nil {
				t.Fatalf("UserProfileFromRecord() error = %v", err)
			}
			if diff := cmp.Diff(profile, got, ignoreLocalState); diff != "" {
				t.Errorf("profile round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMembershipRoundTrip(t *testing.T) {
	m := models.NewMembership("mem-1", "fam-1", "user-1", models.RoleKid)
	m.ChangeRole(models.RoleAdult)

	got, err := MembershipFromRecord(MembershipToRecord(m))
	if err != nil {
		t.Fatalf("MembershipFromRecord() error = %v", err)
	}
	if diff := cmp.Diff(m, got, ignoreLocalState); diff != "" {
		t.Errorf("membership round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateFromRecordUsesModifiedAt(t *testing.T) {
	family := models.NewFamily("fam-1", "The Mawsons", "MAW2024", "user-1")
	rec := FamilyToRecord(family)
	rec.Set(FieldName, "Mawson Clan")
	rec.ModifiedAt = family.UpdatedAt.Add(time.Hour)

	if err := UpdateFamilyFromRecord(family, rec); err != nil {
		t.Fatalf("UpdateFamilyFromRecord() error = %v", err)
	}
	if family.Name != "Mawson Clan" {
		t.Errorf("Name = %q, want Mawson Clan", family.Name)
	}
	if !family.UpdatedAt.Equal(rec.ModifiedAt) {
		t.Errorf("UpdatedAt = %v, want %v", family.UpdatedAt, rec.ModifiedAt)
	}
}

func TestMalformedRecordsLeaveEntityUntouched(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing field", func(r *Record) { delete(r.Fields, FieldFamilyID) }},
		{"wrong type", func(r *Record) { r.Fields[FieldUserID] = 42 }},
		{"unknown role", func(r *Record) { r.Set(FieldRole, "grandparent") }},
		{"unknown status", func(r *Record) { r.Set(FieldStatus, "banned") }},
		{"bad time", func(r *Record) { r.Set(FieldJoinedAt, "yesterday") }},
		{"wrong record type", func(r *Record) { r.RecordType = RecordTypeFamily }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := models.NewMembership("mem-1", "fam-1", "user-1", models.RoleKid)
			before := *m

			rec := MembershipToRecord(m)
			rec.Set(FieldRole, string(models.RoleAdult))
			tt.mutate(rec)

			if err := UpdateMembershipFromRecord(m, rec); err == nil {
				t.Fatal("expected an error")
			}
			if diff := cmp.Diff(before, *m); diff != "" {
				t.Errorf("membership changed on error (-before +after):\n%s", diff)
			}
		})
	}
}
