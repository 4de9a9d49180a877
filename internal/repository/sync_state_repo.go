package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tribeboard/internal/database"
)

// SyncStateRepository stores the pull checkpoint of each cloud record type
type SyncStateRepository struct {
	db database.DBTX
}

// NewSyncStateRepository creates a new sync state repository
func NewSyncStateRepository(db database.DBTX) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// Checkpoint returns the highest remote change sequence already applied for
// the record type, or 0 before the first pull.
func (r *SyncStateRepository) Checkpoint(ctx context.Context, recordType string) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx, "SELECT last_change_seq FROM sync_state WHERE record_type = ?", recordType).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get sync state: %w", err)
	}
	return seq, nil
}

// SetCheckpoint stores the checkpoint for the record type
func (r *SyncStateRepository) SetCheckpoint(ctx context.Context, recordType string, seq int64) error {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_state WHERE record_type = ?", recordType).Scan(&count); err != nil {
		return fmt.Errorf("failed to check sync state: %w", err)
	}

	query := "INSERT INTO sync_state (last_change_seq, record_type) VALUES (?, ?)"
	if count > 0 {
		query = "UPDATE sync_state SET last_change_seq = ? WHERE record_type = ?"
	}
	if _, err := r.db.ExecContext(ctx, query, seq, recordType); err != nil {
		return fmt.Errorf("failed to store sync state: %w", err)
	}
	return nil
}

// Reset clears every checkpoint so the next pull starts from scratch
func (r *SyncStateRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sync_state"); err != nil {
		return fmt.Errorf("failed to reset sync state: %w", err)
	}
	return nil
}
