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

const membershipColumns = "id, family_id, user_id, role, status, joined_at, last_role_change_at, updated_at, " + syncColumns

// MembershipRepository handles database operations for family memberships
type MembershipRepository struct {
	db database.DBTX
}

// NewMembershipRepository creates a new membership repository on a connection or transaction
func NewMembershipRepository(db database.DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func scanMembership(row rowScanner) (*models.Membership, error) {
	var (
		m          models.Membership
		role       string
		status     string
		roleChange sql.NullTime
		sync       syncDest
	)
	dest := append([]any{&m.ID, &m.FamilyID, &m.UserID, &role, &status, &m.JoinedAt, &roleChange, &m.UpdatedAt}, sync.targets()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.Role = models.Role(role)
	m.Status = models.MembershipStatus(status)
	m.JoinedAt = m.JoinedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	m.LastRoleChangeAt = timePtr(roleChange)
	sync.apply(&m.SyncMetadata)
	return &m, nil
}

func (r *MembershipRepository) queryMemberships(ctx context.Context, query string, args ...any) ([]*models.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return memberships, nil
}

func (r *MembershipRepository) getOne(ctx context.Context, query string, args ...any) (*models.Membership, error) {
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

func membershipArgs(m *models.Membership) []any {
	args := []any{m.FamilyID, m.UserID, string(m.Role), string(m.Status), m.JoinedAt.UTC(), nullTime(m.LastRoleChangeAt), m.UpdatedAt.UTC()}
	return append(args, syncArgs(m.SyncMetadata)...)
}

// Create inserts a new membership
func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	args := append([]any{m.ID}, membershipArgs(m)...)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO memberships ("+membershipColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// GetByID retrieves a membership by ID, returning nil when it does not exist
func (r *MembershipRepository) GetByID(ctx context.Context, id string) (*models.Membership, error) {
	return r.getOne(ctx, "SELECT "+membershipColumns+" FROM memberships WHERE id = ?", id)
}

// GetByFamilyAndUser retrieves the membership of a user in a family regardless of status
func (r *MembershipRepository) GetByFamilyAndUser(ctx context.Context, familyID, userID string) (*models.Membership, error) {
	return r.getOne(ctx, "SELECT "+membershipColumns+" FROM memberships WHERE family_id = ? AND user_id = ?", familyID, userID)
}

// ActiveParentAdmin returns the family's active parent admin, if any
func (r *MembershipRepository) ActiveParentAdmin(ctx context.Context, familyID string) (*models.Membership, error) {
	return r.getOne(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE family_id = ? AND role = ? AND status = ? ORDER BY joined_at ASC LIMIT 1",
		familyID, string(models.RoleParentAdmin), string(models.StatusActive))
}

// ListByFamily returns every membership of a family, oldest first
func (r *MembershipRepository) ListByFamily(ctx context.Context, familyID string) ([]*models.Membership, error) {
	return r.queryMemberships(ctx, "SELECT "+membershipColumns+" FROM memberships WHERE family_id = ? ORDER BY joined_at ASC", familyID)
}

// ListByUser returns every membership held by a user
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]*models.Membership, error) {
	return r.queryMemberships(ctx, "SELECT "+membershipColumns+" FROM memberships WHERE user_id = ? ORDER BY joined_at ASC", userID)
}

// List returns every membership
func (r *MembershipRepository) List(ctx context.Context) ([]*models.Membership, error) {
	return r.queryMemberships(ctx, "SELECT "+membershipColumns+" FROM memberships ORDER BY joined_at ASC")
}

// ListNeedsSync returns memberships with local changes not yet pushed
func (r *MembershipRepository) ListNeedsSync(ctx context.Context) ([]*models.Membership, error) {
	return r.queryMemberships(ctx, "SELECT "+membershipColumns+" FROM memberships WHERE needs_sync = ? ORDER BY updated_at ASC", true)
}

// Update writes every column of an existing membership
func (r *MembershipRepository) Update(ctx context.Context, m *models.Membership) error {
	args := append(membershipArgs(m), m.ID)
	_, err := r.db.ExecContext(ctx, `
		UPDATE memberships
		SET family_id = ?, user_id = ?, role = ?, status = ?, joined_at = ?, last_role_change_at = ?, updated_at = ?,
		    ck_record_id = ?, last_sync_date = ?, needs_sync = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

// Upsert inserts the membership or overwrites the stored row
func (r *MembershipRepository) Upsert(ctx context.Context, m *models.Membership) error {
	found, err := exists(ctx, r.db, "memberships", m.ID)
	if err != nil {
		return err
	}
	if found {
		return r.Update(ctx, m)
	}
	return r.Create(ctx, m)
}

// MarkSynced records a successful push of the version last updated at
// pushedUpdatedAt and reports whether the row is clean afterwards
func (r *MembershipRepository) MarkSynced(ctx context.Context, id, recordID string, at, pushedUpdatedAt time.Time) (bool, error) {
	return markSynced(ctx, r.db, "memberships", id, recordID, at, pushedUpdatedAt)
}
