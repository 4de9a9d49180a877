package handlers

import (
	"time"

	"tribeboard/internal/models"
	"tribeboard/internal/service"
)

type SyncView struct {
	RecordID     *string    `json:"record_id,omitempty"`
	LastSyncDate *time.Time `json:"last_sync_date,omitempty"`
	NeedsSync    bool       `json:"needs_sync"`
}

type ProfileView struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Initials    string    `json:"initials"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Sync        SyncView  `json:"sync"`
}

type MembershipView struct {
	ID               string     `json:"id"`
	FamilyID         string     `json:"family_id"`
	UserID           string     `json:"user_id"`
	Role             string     `json:"role"`
	RoleName         string     `json:"role_name"`
	Status           string     `json:"status"`
	JoinedAt         time.Time  `json:"joined_at"`
	LastRoleChangeAt *time.Time `json:"last_role_change_at,omitempty"`
	Sync             SyncView   `json:"sync"`
}

type FamilyView struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Code            string           `json:"code"`
	CreatedByUserID string           `json:"created_by_user_id"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	MemberCount     int              `json:"member_count,omitempty"`
	Memberships     []MembershipView `json:"memberships,omitempty"`
	Sync            SyncView         `json:"sync"`
}

type MemberView struct {
	Membership MembershipView `json:"membership"`
	Profile    ProfileView    `json:"profile"`
}

type InvitationView struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	FamilyID  string    `json:"family_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionView struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Profile   ProfileView `json:"profile"`
}

type JoinView struct {
	Family     FamilyView     `json:"family"`
	Membership MembershipView `json:"membership"`
}

type HealthView struct {
	Status       string `json:"status"`
	Store        string `json:"store"`
	CloudEnabled bool   `json:"cloud_enabled"`
}

func newSyncView(m models.SyncMetadata) SyncView {
	return SyncView{RecordID: m.RecordID, LastSyncDate: m.LastSyncDate, NeedsSync: m.NeedsSync}
}

func newProfileView(p *models.UserProfile) ProfileView {
	return ProfileView{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Initials:    p.Initials(),
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Sync:        newSyncView(p.SyncMetadata),
	}
}

func newMembershipView(m *models.Membership) MembershipView {
	return MembershipView{
		ID:               m.ID,
		FamilyID:         m.FamilyID,
		UserID:           m.UserID,
		Role:             string(m.Role),
		RoleName:         m.Role.DisplayName(),
		Status:           string(m.Status),
		JoinedAt:         m.JoinedAt,
		LastRoleChangeAt: m.LastRoleChangeAt,
		Sync:             newSyncView(m.SyncMetadata),
	}
}

func newFamilyView(f *models.Family) FamilyView {
	view := FamilyView{
		ID:              f.ID,
		Name:            f.Name,
		Code:            f.Code,
		CreatedByUserID: f.CreatedByUserID,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
		MemberCount:     f.MemberCount(),
		Sync:            newSyncView(f.SyncMetadata),
	}
	for _, m := range f.Memberships {
		view.Memberships = append(view.Memberships, newMembershipView(m))
	}
	return view
}

func newMemberViews(members []service.FamilyMember) []MemberView {
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, MemberView{
			Membership: newMembershipView(m.Membership),
			Profile:    newProfileView(m.Profile),
		})
	}
	return views
}

func newInvitationView(inv *models.Invitation) InvitationView {
	return InvitationView{
		ID:        inv.ID,
		Token:     inv.Token,
		FamilyID:  inv.FamilyID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		ExpiresAt: inv.ExpiresAt,
	}
}
