package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// UserProfile represents a person signed in with Apple
type UserProfile struct {
	ID              string
	DisplayName     string
	AppleUserIDHash string
	AvatarURL       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SyncMetadata
}

// NewUserProfile creates a profile that has not been synced yet
func NewUserProfile(id, displayName, appleUserIDHash string) *UserProfile {
	now := Timestamp()
	return &UserProfile{
		ID:              id,
		DisplayName:     displayName,
		AppleUserIDHash: appleUserIDHash,
		CreatedAt:       now,
		UpdatedAt:       now,
		SyncMetadata:    SyncMetadata{NeedsSync: true},
	}
}

func (p *UserProfile) EntityID() string       { return p.ID }
func (p *UserProfile) RecordName() string     { return recordName(p.ID, p.SyncMetadata) }
func (p *UserProfile) UpdatedTime() time.Time { return p.UpdatedAt }
func (p *UserProfile) Sync() *SyncMetadata    { return &p.SyncMetadata }

// Touch records a local modification
func (p *UserProfile) Touch() {
	p.UpdatedAt = Timestamp()
	p.MarkNeedsSync()
}

// Initials returns up to two upper-case initials from the display name
func (p *UserProfile) Initials() string {
	var b strings.Builder
	for _, word := range strings.Fields(p.DisplayName) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		if utf8.RuneCountInString(b.String()) == 2 {
			break
		}
	}
	return b.String()
}
