package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tribeboard/internal/database"
	"tribeboard/internal/models"
	"tribeboard/internal/repository"
)

const backupVersion = "1"

// BackupFormat selects the backup encoding
type BackupFormat string

const (
	FormatJSON BackupFormat = "json"
	FormatYAML BackupFormat = "yaml"
)

// ParseBackupFormat accepts "json", "yaml" or "yml"
func ParseBackupFormat(s string) (BackupFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported backup format %q", s)
}

// FormatForPath infers the format from a file extension, defaulting to JSON
func FormatForPath(path string) BackupFormat {
	if f, err := ParseBackupFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatJSON
}

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string             `json:"version" yaml:"version"`
	ExportedAt   time.Time          `json:"exported_at" yaml:"exported_at"`
	DatabaseType string             `json:"database_type" yaml:"database_type"`
	Profiles     []ProfileBackup    `json:"profiles" yaml:"profiles"`
	Families     []FamilyBackup     `json:"families" yaml:"families"`
	Memberships  []MembershipBackup `json:"memberships" yaml:"memberships"`
}

// ProfileBackup represents a user profile for backup
type ProfileBackup struct {
	ID              string    `json:"id" yaml:"id"`
	DisplayName     string    `json:"display_name" yaml:"display_name"`
	AppleUserIDHash string    `json:"apple_user_id_hash" yaml:"apple_user_id_hash"`
	AvatarURL       *string   `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// FamilyBackup represents a family for backup
type FamilyBackup struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Code            string    `json:"code" yaml:"code"`
	CreatedByUserID string    `json:"created_by_user_id" yaml:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// MembershipBackup represents a membership for backup
type MembershipBackup struct {
	ID               string     `json:"id" yaml:"id"`
	FamilyID         string     `json:"family_id" yaml:"family_id"`
	UserID           string     `json:"user_id" yaml:"user_id"`
	Role             string     `json:"role" yaml:"role"`
	Status           string     `json:"status" yaml:"status"`
	JoinedAt         time.Time  `json:"joined_at" yaml:"joined_at"`
	LastRoleChangeAt *time.Time `json:"last_role_change_at,omitempty" yaml:"last_role_change_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"updated_at"`
}

// ImportStats counts the rows written by an import
type ImportStats struct {
	Profiles    int
	Families    int
	Memberships int
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, logger: logger.Named("backup")}
}

// Snapshot reads every profile, family and membership
func (s *BackupService) Snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
	}

	profiles, err := repository.NewProfileRepository(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	for _, p := range profiles {
		backup.Profiles = append(backup.Profiles, ProfileBackup{
			ID:              p.ID,
			DisplayName:     p.DisplayName,
			AppleUserIDHash: p.AppleUserIDHash,
			AvatarURL:       p.AvatarURL,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       p.UpdatedAt,
		})
	}

	families, err := repository.NewFamilyRepository(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}
	for _, f := range families {
		backup.Families = append(backup.Families, FamilyBackup{
			ID:              f.ID,
			Name:            f.Name,
			Code:            f.Code,
			CreatedByUserID: f.CreatedByUserID,
			CreatedAt:       f.CreatedAt,
			UpdatedAt:       f.UpdatedAt,
		})
	}

	memberships, err := repository.NewMembershipRepository(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export memberships: %w", err)
	}
	for _, m := range memberships {
		backup.Memberships = append(backup.Memberships, MembershipBackup{
			ID:               m.ID,
			FamilyID:         m.FamilyID,
			UserID:           m.UserID,
			Role:             string(m.Role),
			Status:           string(m.Status),
			JoinedAt:         m.JoinedAt,
			LastRoleChangeAt: m.LastRoleChangeAt,
			UpdatedAt:        m.UpdatedAt,
		})
	}

	return backup, nil
}

// Export writes a backup of the store to w
func (s *BackupService) Export(ctx context.Context, w io.Writer, format BackupFormat) error {
	backup, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(backup); err != nil {
			return fmt.Errorf("failed to encode backup: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode backup: %w", err)
		}
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(backup); err != nil {
			return fmt.Errorf("failed to encode backup: %w", err)
		}
	default:
		return fmt.Errorf("unsupported backup format %q", format)
	}

	s.logger.Info("backup exported",
		zap.String("format", string(format)),
		zap.Int("profiles", len(backup.Profiles)),
		zap.Int("families", len(backup.Families)),
		zap.Int("memberships", len(backup.Memberships)))
	return nil
}

// Import reads a backup from r and upserts every row. Imported rows are
// marked for sync.
func (s *BackupService) Import(ctx context.Context, r io.Reader, format BackupFormat) (*ImportStats, error) {
	var backup BackupData
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&backup); err != nil {
			return nil, fmt.Errorf("failed to decode backup: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&backup); err != nil {
			return nil, fmt.Errorf("failed to decode backup: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported backup format %q", format)
	}
	if backup.Version != backupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	stats := &ImportStats{}
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		profiles := repository.NewProfileRepository(tx)
		for _, b := range backup.Profiles {
			p := &models.UserProfile{
				ID:              b.ID,
				DisplayName:     b.DisplayName,
				AppleUserIDHash: b.AppleUserIDHash,
				AvatarURL:       b.AvatarURL,
				CreatedAt:       b.CreatedAt.UTC(),
				UpdatedAt:       b.UpdatedAt.UTC(),
				SyncMetadata:    models.SyncMetadata{NeedsSync: true},
			}
			if err := profiles.Upsert(ctx, p); err != nil {
				return fmt.Errorf("profile %s: %w", b.ID, err)
			}
			stats.Profiles++
		}

		families := repository.NewFamilyRepository(tx)
		for _, b := range backup.Families {
			f := &models.Family{
				ID:              b.ID,
				Name:            b.Name,
				Code:            b.Code,
				CreatedByUserID: b.CreatedByUserID,
				CreatedAt:       b.CreatedAt.UTC(),
				UpdatedAt:       b.UpdatedAt.UTC(),
				SyncMetadata:    models.SyncMetadata{NeedsSync: true},
			}
			if err := families.Upsert(ctx, f); err != nil {
				return fmt.Errorf("family %s: %w", b.ID, err)
			}
			stats.Families++
		}

		memberships := repository.NewMembershipRepository(tx)
		for _, b := range backup.Memberships {
			role, status := models.Role(b.Role), models.MembershipStatus(b.Status)
			if !role.IsValid() || !status.IsValid() {
				return fmt.Errorf("membership %s: invalid role %q or status %q", b.ID, b.Role, b.Status)
			}
			m := &models.Membership{
				ID:               b.ID,
				FamilyID:         b.FamilyID,
				UserID:           b.UserID,
				Role:             role,
				Status:           status,
				JoinedAt:         b.JoinedAt.UTC(),
				LastRoleChangeAt: b.LastRoleChangeAt,
				UpdatedAt:        b.UpdatedAt.UTC(),
				SyncMetadata:     models.SyncMetadata{NeedsSync: true},
			}
			if err := memberships.Upsert(ctx, m); err != nil {
				return fmt.Errorf("membership %s: %w", b.ID, err)
			}
			stats.Memberships++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import backup: %w", err)
	}

	s.logger.Info("backup imported",
		zap.Int("profiles", stats.Profiles),
		zap.Int("families", stats.Families),
		zap.Int("memberships", stats.Memberships))
	return stats, nil
}
