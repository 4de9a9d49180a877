package models

import "time"

// Membership links a user profile to a family with a role
type Membership struct {
	ID               string
	FamilyID         string
	UserID           string
	Role             Role
	Status           MembershipStatus
	JoinedAt         time.Time
	LastRoleChangeAt *time.Time
	UpdatedAt        time.Time
	SyncMetadata
}

// NewMembership creates an active membership that has not been synced yet
func NewMembership(id, familyID, userID string, role Role) *Membership {
	now := Timestamp()
	return &Membership{
		ID:           id,
		FamilyID:     familyID,
		UserID:       userID,
		Role:         role,
		Status:       StatusActive,
		JoinedAt:     now,
		UpdatedAt:    now,
		SyncMetadata: SyncMetadata{NeedsSync: true},
	}
}

func (m *Membership) EntityID() string       { return m.ID }
func (m *Membership) RecordName() string     { return recordName(m.ID, m.SyncMetadata) }
func (m *Membership) UpdatedTime() time.Time { return m.UpdatedAt }
func (m *Membership) Sync() *SyncMetadata    { return &m.SyncMetadata }

// IsActive reports whether the membership currently grants access
func (m *Membership) IsActive() bool {
	return m.Status == StatusActive
}

// ChangeRole updates the role and stamps the change time
func (m *Membership) ChangeRole(role Role) {
	if m.Role == role {
		return
	}
	now := Timestamp()
	m.Role = role
	m.LastRoleChangeAt = &now
	m.UpdatedAt = now
	m.MarkNeedsSync()
}

// SetStatus updates the status and marks the membership dirty
func (m *Membership) SetStatus(status MembershipStatus) {
	if m.Status == status {
		return
	}
	m.Status = status
	m.UpdatedAt = Timestamp()
	m.MarkNeedsSync()
}
