package models

import (
	"errors"
	"time"
)

// ErrParentAdminExists is returned when a second active parent admin would be created
var ErrParentAdminExists = errors.New("family already has an active parent admin")

// Family represents a household sharing a board
type Family struct {
	ID              string
	Name            string
	Code            string
	CreatedByUserID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SyncMetadata

	// Memberships is populated only when loaded with members
	Memberships []*Membership
}

// NewFamily creates a family that has not been synced yet
func NewFamily(id, name, code, createdByUserID string) *Family {
	now := Timestamp()
	return &Family{
		ID:              id,
		Name:            name,
		Code:            code,
		CreatedByUserID: createdByUserID,
		CreatedAt:       now,
		UpdatedAt:       now,
		SyncMetadata:    SyncMetadata{NeedsSync: true},
	}
}

func (f *Family) EntityID() string       { return f.ID }
func (f *Family) RecordName() string     { return recordName(f.ID, f.SyncMetadata) }
func (f *Family) UpdatedTime() time.Time { return f.UpdatedAt }
func (f *Family) Sync() *SyncMetadata    { return &f.SyncMetadata }

// Touch records a local modification
func (f *Family) Touch() {
	f.UpdatedAt = Timestamp()
	f.MarkNeedsSync()
}

// ActiveMembers returns the memberships with active status
func (f *Family) ActiveMembers() []*Membership {
	var active []*Membership
	for _, m := range f.Memberships {
		if m.IsActive() {
			active = append(active, m)
		}
	}
	return active
}

// MemberCount returns the number of active members
func (f *Family) MemberCount() int {
	return len(f.ActiveMembers())
}

// HasParentAdmin reports whether an active parent admin exists
func (f *Family) HasParentAdmin() bool {
	return f.ParentAdmin() != nil
}

// ParentAdmin returns the active parent admin membership, if any
func (f *Family) ParentAdmin() *Membership {
	for _, m := range f.Memberships {
		if m.IsActive() && m.Role == RoleParentAdmin {
			return m
		}
	}
	return nil
}

// CanAssign checks that giving role to the membership with the given ID keeps
// at most one active parent admin. membershipID may be empty for new members.
func (f *Family) CanAssign(role Role, membershipID string) error {
	if role != RoleParentAdmin {
		return nil
	}
	if admin := f.ParentAdmin(); admin != nil && admin.ID != membershipID {
		return ErrParentAdminExists
	}
	return nil
}

// AddMembership attaches a membership unless it would add a second active parent admin
func (f *Family) AddMembership(m *Membership) error {
	if m.IsActive() {
		if err := f.CanAssign(m.Role, m.ID); err != nil {
			return err
		}
	}
	m.FamilyID = f.ID
	f.Memberships = append(f.Memberships, m)
	return nil
}

// MembershipFor returns the membership for a user, if loaded
func (f *Family) MembershipFor(userID string) *Membership {
	for _, m := range f.Memberships {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}
