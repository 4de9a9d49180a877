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

const invitationColumns = "id, token, family_id, email, role, invited_by, created_at, expires_at, used_at, used_by"

type InvitationRepository struct {
	db database.DBTX
}

func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var (
		inv    models.Invitation
		role   string
		usedAt sql.NullTime
		usedBy sql.NullString
	)
	err := row.Scan(&inv.ID, &inv.Token, &inv.FamilyID, &inv.Email, &role, &inv.InvitedBy,
		&inv.CreatedAt, &inv.ExpiresAt, &usedAt, &usedBy)
	if err != nil {
		return nil, err
	}
	inv.Role = models.Role(role)
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	inv.UsedAt = timePtr(usedAt)
	inv.UsedBy = stringPtr(usedBy)
	return &inv, nil
}

// Create stores a new invitation
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query := `INSERT INTO invitations (` + invitationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, inv.ID, inv.Token, inv.FamilyID, inv.Email, string(inv.Role), inv.InvitedBy,
		inv.CreatedAt.UTC(), inv.ExpiresAt.UTC(), nullTime(inv.UsedAt), nullString(inv.UsedBy))
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetByToken retrieves an invitation by token, returning nil when it does not exist
func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE token = ?`, token)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// MarkUsed claims an unused invitation for a user. It reports false when the
// invitation was already used.
func (r *InvitationRepository) MarkUsed(ctx context.Context, token, userID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET used_at = ?, used_by = ? WHERE token = ? AND used_at IS NULL`,
		at.UTC(), userID, token)
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	return n > 0, nil
}

// ListByFamily returns a family's invitations, newest first
func (r *InvitationRepository) ListByFamily(ctx context.Context, familyID string) ([]*models.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE family_id = ? ORDER BY created_at DESC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// Delete deletes an invitation by ID
func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	return err
}
