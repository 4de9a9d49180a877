package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tribeboard/internal/database"
	"tribeboard/internal/models"
)

// syncColumns is appended to every select of a syncable table
const syncColumns = "ck_record_id, last_sync_date, needs_sync"

type rowScanner interface {
	Scan(dest ...any) error
}

// syncDest collects the nullable sync columns during a scan
type syncDest struct {
	recordID     sql.NullString
	lastSyncDate sql.NullTime
	needsSync    bool
}

func (d *syncDest) targets() []any {
	return []any{&d.recordID, &d.lastSyncDate, &d.needsSync}
}

func (d *syncDest) apply(meta *models.SyncMetadata) {
	meta.RecordID = nil
	meta.LastSyncDate = nil
	if d.recordID.Valid {
		id := d.recordID.String
		meta.RecordID = &id
	}
	if d.lastSyncDate.Valid {
		t := d.lastSyncDate.Time.UTC()
		meta.LastSyncDate = &t
	}
	meta.NeedsSync = d.needsSync
}

func syncArgs(meta models.SyncMetadata) []any {
	var recordID, lastSync any
	if meta.RecordID != nil {
		recordID = *meta.RecordID
	}
	if meta.LastSyncDate != nil {
		lastSync = meta.LastSyncDate.UTC()
	}
	return []any{recordID, lastSync, meta.NeedsSync}
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func exists(ctx context.Context, db database.DBTX, table, id string) (bool, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table)
	if err := db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check %s row: %w", table, err)
	}
	return count > 0, nil
}

// markSynced stores the record id and sync time of a pushed row. The dirty flag
// is cleared only while updated_at still matches the pushed version; a row edited
// during the push stays dirty and reports false.
func markSynced(ctx context.Context, db database.DBTX, table, id, recordID string, at, pushedUpdatedAt time.Time) (bool, error) {
	query := fmt.Sprintf("UPDATE %s SET ck_record_id = ?, last_sync_date = ? WHERE id = ?", table)
	if _, err := db.ExecContext(ctx, query, recordID, at.UTC(), id); err != nil {
		return false, fmt.Errorf("failed to mark %s row synced: %w", table, err)
	}

	query = fmt.Sprintf("UPDATE %s SET needs_sync = ? WHERE id = ? AND updated_at = ?", table)
	result, err := db.ExecContext(ctx, query, false, id, pushedUpdatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to clear %s dirty flag: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to clear %s dirty flag: %w", table, err)
	}
	return n > 0, nil
}
