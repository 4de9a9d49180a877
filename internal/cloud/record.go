// Package cloud models the remote record database that local entities sync to.
package cloud

import (
	"fmt"
	"time"
)

// Record types in the remote database
const (
	RecordTypeFamily      = "CKFamily"
	RecordTypeUserProfile = "CKUserProfile"
	RecordTypeMembership  = "CKMembership"
)

// RecordTypes lists record types in dependency order: a membership references
// a family and a profile, so those sync first.
var RecordTypes = []string{RecordTypeUserProfile, RecordTypeFamily, RecordTypeMembership}

// Field names used in records
const (
	FieldName             = "name"
	FieldCode             = "code"
	FieldCreatedByUserID  = "createdByUserId"
	FieldCreatedAt        = "createdAt"
	FieldDisplayName      = "displayName"
	FieldAppleUserIDHash  = "appleUserIdHash"
	FieldAvatarURL        = "avatarUrl"
	FieldFamilyID         = "familyId"
	FieldUserID           = "userId"
	FieldRole             = "role"
	FieldStatus           = "status"
	FieldJoinedAt         = "joinedAt"
	FieldLastRoleChangeAt = "lastRoleChangeAt"
)

// Record is a typed bag of fields stored under a (type, name) key
type Record struct {
	RecordType string         `json:"record_type"`
	RecordName string         `json:"record_name"`
	Fields     map[string]any `json:"fields"`
	ChangeTag  string         `json:"change_tag,omitempty"`
	ModifiedAt time.Time      `json:"modified_at"`
	// Sequence is assigned by the store on every save and grows in commit
	// order. Pull checkpoints use it rather than ModifiedAt, which comes from
	// the writer's clock.
	Sequence int64 `json:"sequence,omitempty"`
}

// NewRecord creates an empty record
func NewRecord(recordType, name string) *Record {
	return &Record{RecordType: recordType, RecordName: name, Fields: map[string]any{}}
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	c := *r
	c.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

// Set stores a field value. A nil value removes the field.
func (r *Record) Set(key string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	if value == nil {
		delete(r.Fields, key)
		return
	}
	r.Fields[key] = value
}

// SetTime stores a time as a UTC RFC3339Nano string
func (r *Record) SetTime(key string, t time.Time) {
	r.Set(key, t.UTC().Format(time.RFC3339Nano))
}

// SetOptionalTime stores t when non-nil and removes the field otherwise
func (r *Record) SetOptionalTime(key string, t *time.Time) {
	if t == nil {
		r.Set(key, nil)
		return
	}
	r.SetTime(key, *t)
}

// SetOptionalString stores s when non-nil and removes the field otherwise
func (r *Record) SetOptionalString(key string, s *string) {
	if s == nil {
		r.Set(key, nil)
		return
	}
	r.Set(key, *s)
}

// String returns a required string field
func (r *Record) String(key string) (string, error) {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return "", fmt.Errorf("record %s/%s: missing field %q", r.RecordType, r.RecordName, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("record %s/%s: field %q is %T, want string", r.RecordType, r.RecordName, key, v)
	}
	return s, nil
}

// OptionalString returns a string field or nil when absent
func (r *Record) OptionalString(key string) (*string, error) {
	if v, ok := r.Fields[key]; !ok || v == nil {
		return nil, nil
	}
	s, err := r.String(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Time returns a required time field
func (r *Record) Time(key string) (time.Time, error) {
	s, err := r.String(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("record %s/%s: field %q: %w", r.RecordType, r.RecordName, key, err)
	}
	return t.UTC(), nil
}

// OptionalTime returns a time field or nil when absent
func (r *Record) OptionalTime(key string) (*time.Time, error) {
	if v, ok := r.Fields[key]; !ok || v == nil {
		return nil, nil
	}
	t, err := r.Time(key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
