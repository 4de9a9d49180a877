package cloudsync

import (
	"testing"
	"time"

	"tribeboard/internal/cloud"
	"tribeboard/internal/models"
)

func TestDetectConflict(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name       string
		updatedAt  time.Time
		lastSync   *time.Time
		needsSync  bool
		modifiedAt time.Time
		want       ConflictResolution
	}{
		{"server unchanged since sync", at(5), ptr(at(0)), true, at(0), ConflictNone},
		{"server older than last sync", at(5), ptr(at(1)), false, at(0), ConflictNone},
		{"local dirty and newer", at(10), ptr(at(0)), true, at(5), ConflictLocalNewer},
		{"local dirty but older", at(3), ptr(at(0)), true, at(5), ConflictServerNewer},
		{"local clean", at(10), ptr(at(0)), false, at(5), ConflictServerNewer},
		{"tie goes to server", at(5), ptr(at(0)), true, at(5), ConflictServerNewer},
		{"never synced and dirty newer", at(10), nil, true, at(5), ConflictLocalNewer},
		{"never synced and clean", at(10), nil, false, at(5), ConflictServerNewer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family := models.NewFamily("fam-1", "The Mawsons", "MAW2024", "user-1")
			family.UpdatedAt = tt.updatedAt
			family.LastSyncDate = tt.lastSync
			family.NeedsSync = tt.needsSync

			rec := cloud.FamilyToRecord(family)
			rec.ModifiedAt = tt.modifiedAt

			if got := DetectConflict(family, rec); got != tt.want {
				t.Errorf("DetectConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveConflict(t *testing.T) {
	modified := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		resolution  ConflictResolution
		wantName    string
		wantChanged bool
		wantDirty   bool
	}{
		{"none keeps local", ConflictNone, "Local Name", false, true},
		{"local newer keeps local dirty", ConflictLocalNewer, "Local Name", false, true},
		{"server newer overwrites", ConflictServerNewer, "Server Name", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family := models.NewFamily("fam-1", "Local Name", "MAW2024", "user-1")

			rec := cloud.FamilyToRecord(family)
			rec.Set(cloud.FieldName, "Server Name")
			rec.ModifiedAt = modified

			changed, err := ResolveConflict(family, rec, tt.resolution)
			if err != nil {
				t.Fatalf("ResolveConflict() error = %v", err)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if family.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", family.Name, tt.wantName)
			}
			if family.NeedsSync != tt.wantDirty {
				t.Errorf("NeedsSync = %v, want %v", family.NeedsSync, tt.wantDirty)
			}
			if tt.wantChanged && (family.LastSyncDate == nil || !family.LastSyncDate.Equal(modified)) {
				t.Errorf("LastSyncDate = %v, want %v", family.LastSyncDate, modified)
			}
		})
	}

	if _, err := ResolveConflict(models.NewFamily("f", "n", "ABCDEF", "u"), cloud.NewRecord(cloud.RecordTypeFamily, "f"), "bogus"); err == nil {
		t.Error("unknown resolution should fail")
	}
}
