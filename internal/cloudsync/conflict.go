package cloudsync

import (
	"fmt"

	"tribeboard/internal/cloud"
	"tribeboard/internal/models"
)

// ConflictResolution is the outcome of comparing a local entity with its remote record
type ConflictResolution string

const (
	ConflictNone        ConflictResolution = "none"
	ConflictLocalNewer  ConflictResolution = "local_newer"
	ConflictServerNewer ConflictResolution = "server_newer"
)

// DetectConflict decides which side wins using last-write-wins on modification
// times. A record unchanged since the entity last synced needs no action; ties
// go to the server.
func DetectConflict(local models.Syncable, server *cloud.Record) ConflictResolution {
	meta := local.Sync()
	if meta.LastSyncDate != nil && !server.ModifiedAt.After(*meta.LastSyncDate) {
		return ConflictNone
	}
	if meta.NeedsSync && local.UpdatedTime().After(server.ModifiedAt) {
		return ConflictLocalNewer
	}
	return ConflictServerNewer
}

// ResolveConflict applies a resolution to the local entity and reports whether
// the entity changed. A local_newer entity is kept dirty so the next push wins.
func ResolveConflict(local models.Syncable, server *cloud.Record, resolution ConflictResolution) (bool, error) {
	switch resolution {
	case ConflictNone, ConflictLocalNewer:
		return false, nil
	case ConflictServerNewer:
		if err := applyRecord(local, server); err != nil {
			return false, err
		}
		local.Sync().MarkAsSynced(server.ModifiedAt)
		return true, nil
	}
	return false, fmt.Errorf("unknown conflict resolution %q", resolution)
}

func applyRecord(local models.Syncable, rec *cloud.Record) error {
	switch e := local.(type) {
	case *models.Family:
		return cloud.UpdateFamilyFromRecord(e, rec)
	case *models.UserProfile:
		return cloud.UpdateUserProfileFromRecord(e, rec)
	case *models.Membership:
		return cloud.UpdateMembershipFromRecord(e, rec)
	}
	return fmt.Errorf("unsupported entity %T", local)
}
