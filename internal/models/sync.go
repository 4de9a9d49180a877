package models

import "time"

// Syncable is implemented by every entity mirrored to the cloud record database
type Syncable interface {
	EntityID() string
	RecordName() string
	UpdatedTime() time.Time
	Sync() *SyncMetadata
}

// SyncMetadata tracks the reconciliation state of a locally stored entity
type SyncMetadata struct {
	RecordID     *string    // cloud record name once the entity has been saved remotely
	LastSyncDate *time.Time // when the entity last matched the cloud copy
	NeedsSync    bool       // local changes not yet pushed
}

// MarkNeedsSync flags the entity as dirty
func (m *SyncMetadata) MarkNeedsSync() {
	m.NeedsSync = true
}

// MarkAsSynced clears the dirty flag and records the sync time
func (m *SyncMetadata) MarkAsSynced(at time.Time) {
	at = at.UTC()
	m.NeedsSync = false
	m.LastSyncDate = &at
}

// SetRecordID stores the cloud record name
func (m *SyncMetadata) SetRecordID(name string) {
	m.RecordID = &name
}

// IsSynced reports whether the entity has synced at least once and has no pending changes
func (m *SyncMetadata) IsSynced() bool {
	return !m.NeedsSync && m.LastSyncDate != nil
}

func recordName(id string, meta SyncMetadata) string {
	if meta.RecordID != nil && *meta.RecordID != "" {
		return *meta.RecordID
	}
	return id
}

// Timestamp returns the current UTC time at the precision every supported database keeps
func Timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
