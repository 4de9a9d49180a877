package cloud

import (
	"fmt"

	"tribeboard/internal/models"
)

func checkType(rec *Record, want string) error {
	if rec.RecordType != want {
		return fmt.Errorf("record %s is %s, want %s", rec.RecordName, rec.RecordType, want)
	}
	return nil
}

// FamilyToRecord maps a family onto a CKFamily record
func FamilyToRecord(f *models.Family) *Record {
	rec := NewRecord(RecordTypeFamily, f.RecordName())
	rec.Set(FieldName, f.Name)
	rec.Set(FieldCode, f.Code)
	rec.Set(FieldCreatedByUserID, f.CreatedByUserID)
	rec.SetTime(FieldCreatedAt, f.CreatedAt)
	return rec
}

// UpdateFamilyFromRecord overwrites the family's mapped fields from a record.
// The family is left untouched when the record is malformed.
func UpdateFamilyFromRecord(f *models.Family, rec *Record) error {
	if err := checkType(rec, RecordTypeFamily); err != nil {
		return err
	}
	name, err := rec.String(FieldName)
	if err != nil {
		return err
	}
	code, err := rec.String(FieldCode)
	if err != nil {
		return err
	}
	createdBy, err := rec.String(FieldCreatedByUserID)
	if err != nil {
		return err
	}
	createdAt, err := rec.Time(FieldCreatedAt)
	if err != nil {
		return err
	}

	f.Name = name
	f.Code = code
	f.CreatedByUserID = createdBy
	f.CreatedAt = createdAt
	if !rec.ModifiedAt.IsZero() {
		f.UpdatedAt = rec.ModifiedAt.UTC()
	}
	f.SetRecordID(rec.RecordName)
	return nil
}

// FamilyFromRecord builds a new local family from a remote record
func FamilyFromRecord(rec *Record) (*models.Family, error) {
	f := &models.Family{ID: rec.RecordName}
	if err := UpdateFamilyFromRecord(f, rec); err != nil {
		return nil, err
	}
	return f, nil
}

// UserProfileToRecord maps a profile onto a CKUserProfile record
func UserProfileToRecord(p *models.UserProfile) *Record {
	rec := NewRecord(RecordTypeUserProfile, p.RecordName())
	rec.Set(FieldDisplayName, p.DisplayName)
	rec.Set(FieldAppleUserIDHash, p.AppleUserIDHash)
	rec.SetOptionalString(FieldAvatarURL, p.AvatarURL)
	rec.SetTime(FieldCreatedAt, p.CreatedAt)
	return rec
}

// UpdateUserProfileFromRecord overwrites the profile's mapped fields from a record
func UpdateUserProfileFromRecord(p *models.UserProfile, rec *Record) error {
	if err := checkType(rec, RecordTypeUserProfile); err != nil {
		return err
	}
	displayName, err := rec.String(FieldDisplayName)
	if err != nil {
		return err
	}
	hash, err := rec.String(FieldAppleUserIDHash)
	if err != nil {
		return err
	}
	avatar, err := rec.OptionalString(FieldAvatarURL)
	if err != nil {
		return err
	}
	createdAt, err := rec.Time(FieldCreatedAt)
	if err != nil {
		return err
	}

	p.DisplayName = displayName
	p.AppleUserIDHash = hash
	p.AvatarURL = avatar
	p.CreatedAt = createdAt
	if !rec.ModifiedAt.IsZero() {
		p.UpdatedAt = rec.ModifiedAt.UTC()
	}
	p.SetRecordID(rec.RecordName)
	return nil
}

// UserProfileFromRecord builds a new local profile from a remote record
func UserProfileFromRecord(rec *Record) (*models.UserProfile, error) {
	p := &models.UserProfile{ID: rec.RecordName}
	if err := UpdateUserProfileFromRecord(p, rec); err != nil {
		return nil, err
	}
	return p, nil
}

// MembershipToRecord maps a membership onto a CKMembership record
func MembershipToRecord(m *models.Membership) *Record {
	rec := NewRecord(RecordTypeMembership, m.RecordName())
	rec.Set(FieldFamilyID, m.FamilyID)
	rec.Set(FieldUserID, m.UserID)
	rec.Set(FieldRole, string(m.Role))
	rec.Set(FieldStatus, string(m.Status))
	rec.SetTime(FieldJoinedAt, m.JoinedAt)
	rec.SetOptionalTime(FieldLastRoleChangeAt, m.LastRoleChangeAt)
	return rec
}

// UpdateMembershipFromRecord overwrites the membership's mapped fields from a record
func UpdateMembershipFromRecord(m *models.Membership, rec *Record) error {
	if err := checkType(rec, RecordTypeMembership); err != nil {
		return err
	}
	familyID, err := rec.String(FieldFamilyID)
	if err != nil {
		return err
	}
	userID, err := rec.String(FieldUserID)
	if err != nil {
		return err
	}
	role, err := rec.String(FieldRole)
	if err != nil {
		return err
	}
	if !models.Role(role).IsValid() {
		return fmt.Errorf("record %s: unknown role %q", rec.RecordName, role)
	}
	status, err := rec.String(FieldStatus)
	if err != nil {
		return err
	}
	if !models.MembershipStatus(status).IsValid() {
		return fmt.Errorf("record %s: unknown status %q", rec.RecordName, status)
	}
	joinedAt, err := rec.Time(FieldJoinedAt)
	if err != nil {
		return err
	}
	lastRoleChange, err := rec.OptionalTime(FieldLastRoleChangeAt)
	if err != nil {
		return err
	}

	m.FamilyID = familyID
	m.UserID = userID
	m.Role = models.Role(role)
	m.Status = models.MembershipStatus(status)
	m.JoinedAt = joinedAt
	m.LastRoleChangeAt = lastRoleChange
	if !rec.ModifiedAt.IsZero() {
		m.UpdatedAt = rec.ModifiedAt.UTC()
	}
	m.SetRecordID(rec.RecordName)
	return nil
}

// MembershipFromRecord builds a new local membership from a remote record
func MembershipFromRecord(rec *Record) (*models.Membership, error) {
	m := &models.Membership{ID: rec.RecordName}
	if err := UpdateMembershipFromRecord(m, rec); err != nil {
		return nil, err
	}
	return m, nil
}
