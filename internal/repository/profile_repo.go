package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tribeboard/internal/database"
	"tribeboard/internal/models"
)

const profileColumns = "id, display_name, apple_user_id_hash, avatar_url, created_at, updated_at, " + syncColumns

// ProfileRepository handles database operations for user profiles
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new profile repository on a connection or transaction
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row rowScanner) (*models.UserProfile, error) {
	var (
		p      models.UserProfile
		avatar sql.NullString
		sync   syncDest
	)
	dest := append([]any{&p.ID, &p.DisplayName, &p.AppleUserIDHash, &avatar, &p.CreatedAt, &p.UpdatedAt}, sync.targets()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.AvatarURL = stringPtr(avatar)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	sync.apply(&p.SyncMetadata)
	return &p, nil
}

func (r *ProfileRepository) queryProfiles(ctx context.Context, query string, args ...any) ([]*models.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

func (r *ProfileRepository) getOne(ctx context.Context, where string, arg any) (*models.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM user_profiles WHERE "+where+" = ?", arg)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Create inserts a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *models.UserProfile) error {
	args := append([]any{p.ID, p.DisplayName, p.AppleUserIDHash, nullString(p.AvatarURL), p.CreatedAt.UTC(), p.UpdatedAt.UTC()}, syncArgs(p.SyncMetadata)...)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_profiles ("+profileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID, returning nil when it does not exist
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	return r.getOne(ctx, "id", id)
}

// GetByAppleUserIDHash retrieves the profile linked to a hashed Apple subject
func (r *ProfileRepository) GetByAppleUserIDHash(ctx context.Context, hash string) (*models.UserProfile, error) {
	return r.getOne(ctx, "apple_user_id_hash", hash)
}

// List returns every profile
func (r *ProfileRepository) List(ctx context.Context) ([]*models.UserProfile, error) {
	return r.queryProfiles(ctx, "SELECT "+profileColumns+" FROM user_profiles ORDER BY created_at ASC")
}

// ListNeedsSync returns profiles with local changes not yet pushed
func (r *ProfileRepository) ListNeedsSync(ctx context.Context) ([]*models.UserProfile, error) {
	return r.queryProfiles(ctx, "SELECT "+profileColumns+" FROM user_profiles WHERE needs_sync = ? ORDER BY updated_at ASC", true)
}

// Update writes every column of an existing profile
func (r *ProfileRepository) Update(ctx context.Context, p *models.UserProfile) error {
	args := append([]any{p.DisplayName, p.AppleUserIDHash, nullString(p.AvatarURL), p.CreatedAt.UTC(), p.UpdatedAt.UTC()}, syncArgs(p.SyncMetadata)...)
	args = append(args, p.ID)
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_profiles
		SET display_name = ?, apple_user_id_hash = ?, avatar_url = ?, created_at = ?, updated_at = ?,
		    ck_record_id = ?, last_sync_date = ?, needs_sync = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// Upsert inserts the profile or overwrites the stored row
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.UserProfile) error {
	found, err := exists(ctx, r.db, "user_profiles", p.ID)
	if err != nil {
		return err
	}
	if found {
		return r.Update(ctx, p)
	}
	return r.Create(ctx, p)
}

// MarkSynced records a successful push of the version last updated at
// pushedUpdatedAt and reports whether the row is clean afterwards
func (r *ProfileRepository) MarkSynced(ctx context.Context, id, recordID string, at, pushedUpdatedAt time.Time) (bool, error) {
	return markSynced(ctx, r.db, "user_profiles", id, recordID, at, pushedUpdatedAt)
}
