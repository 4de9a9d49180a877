package models

// Role is the authorization tier of a member within a family
type Role string

const (
	RoleParentAdmin Role = "parent_admin"
	RoleAdult       Role = "adult"
	RoleKid         Role = "kid"
	RoleVisitor     Role = "visitor"
)

// AllRoles lists roles from most to least privileged
var AllRoles = []Role{RoleParentAdmin, RoleAdult, RoleKid, RoleVisitor}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleParentAdmin, RoleAdult, RoleKid, RoleVisitor:
		return true
	}
	return false
}

// DisplayName returns the label shown to users
func (r Role) DisplayName() string {
	switch r {
	case RoleParentAdmin:
		return "Parent Admin"
	case RoleAdult:
		return "Adult"
	case RoleKid:
		return "Kid"
	case RoleVisitor:
		return "Visitor"
	}
	return string(r)
}

// CanManageMembers reports whether the role may invite, remove and re-role members
func (r Role) CanManageMembers() bool {
	return r == RoleParentAdmin
}

// CanEditContent reports whether the role may edit shared family content
func (r Role) CanEditContent() bool {
	return r == RoleParentAdmin || r == RoleAdult
}

// MembershipStatus is the lifecycle state of a membership
type MembershipStatus string

const (
	StatusActive  MembershipStatus = "active"
	StatusInvited MembershipStatus = "invited"
	StatusRemoved MembershipStatus = "removed"
)

// IsValid reports whether s is a known status
func (s MembershipStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusInvited, StatusRemoved:
		return true
	}
	return false
}
