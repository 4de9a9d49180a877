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

const familyColumns = "id, name, code, created_by_user_id, created_at, updated_at, " + syncColumns

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository on a connection or transaction
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

func scanFamily(row rowScanner) (*models.Family, error) {
	var (
		f    models.Family
		sync syncDest
	)
	dest := append([]any{&f.ID, &f.Name, &f.Code, &f.CreatedByUserID, &f.CreatedAt, &f.UpdatedAt}, sync.targets()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	sync.apply(&f.SyncMetadata)
	return &f, nil
}

func (r *FamilyRepository) queryFamilies(ctx context.Context, query string, args ...any) ([]*models.Family, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []*models.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate families: %w", err)
	}
	return families, nil
}

// Create inserts a new family
func (r *FamilyRepository) Create(ctx context.Context, f *models.Family) error {
	args := append([]any{f.ID, f.Name, f.Code, f.CreatedByUserID, f.CreatedAt.UTC(), f.UpdatedAt.UTC()}, syncArgs(f.SyncMetadata)...)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO families ("+familyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	if err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

// GetByID retrieves a family by ID, returning nil when it does not exist
func (r *FamilyRepository) GetByID(ctx context.Context, id string) (*models.Family, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+familyColumns+" FROM families WHERE id = ?", id)
	f, err := scanFamily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return f, nil
}

// GetByCode retrieves a family by its normalized join code
func (r *FamilyRepository) GetByCode(ctx context.Context, code string) (*models.Family, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+familyColumns+" FROM families WHERE code = ?", code)
	f, err := scanFamily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family by code: %w", err)
	}
	return f, nil
}

// CodeExists reports whether a family already uses the code
func (r *FamilyRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families WHERE code = ?", code).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family code: %w", err)
	}
	return count > 0, nil
}

// ListForUser returns the families where the user has an active membership
func (r *FamilyRepository) ListForUser(ctx context.Context, userID string) ([]*models.Family, error) {
	query := `
		SELECT f.id, f.name, f.code, f.created_by_user_id, f.created_at, f.updated_at,
		       f.ck_record_id, f.last_sync_date, f.needs_sync
		FROM families f
		INNER JOIN memberships m ON f.id = m.family_id
		WHERE m.user_id = ? AND m.status = ?
		ORDER BY f.created_at ASC
	`
	return r.queryFamilies(ctx, query, userID, string(models.StatusActive))
}

// List returns every family
func (r *FamilyRepository) List(ctx context.Context) ([]*models.Family, error) {
	return r.queryFamilies(ctx, "SELECT "+familyColumns+" FROM families ORDER BY created_at ASC")
}

// ListNeedsSync returns families with local changes not yet pushed
func (r *FamilyRepository) ListNeedsSync(ctx context.Context) ([]*models.Family, error) {
	return r.queryFamilies(ctx, "SELECT "+familyColumns+" FROM families WHERE needs_sync = ? ORDER BY updated_at ASC", true)
}

// Update writes every column of an existing family
func (r *FamilyRepository) Update(ctx context.Context, f *models.Family) error {
	args := append([]any{f.Name, f.Code, f.CreatedByUserID, f.CreatedAt.UTC(), f.UpdatedAt.UTC()}, syncArgs(f.SyncMetadata)...)
	args = append(args, f.ID)
	_, err := r.db.ExecContext(ctx, `
		UPDATE families
		SET name = ?, code = ?, created_by_user_id = ?, created_at = ?, updated_at = ?,
		    ck_record_id = ?, last_sync_date = ?, needs_sync = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// Upsert inserts the family or overwrites the stored row
func (r *FamilyRepository) Upsert(ctx context.Context, f *models.Family) error {
	found, err := exists(ctx, r.db, "families", f.ID)
	if err != nil {
		return err
	}
	if found {
		return r.Update(ctx, f)
	}
	return r.Create(ctx, f)
}

// MarkSynced records a successful push of the version last updated at
// pushedUpdatedAt and reports whether the row is clean afterwards
func (r *FamilyRepository) MarkSynced(ctx context.Context, id, recordID string, at, pushedUpdatedAt time.Time) (bool, error) {
	return markSynced(ctx, r.db, "families", id, recordID, at, pushedUpdatedAt)
}

// Delete deletes a family and its memberships
func (r *FamilyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM families WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}
