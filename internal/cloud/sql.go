package cloud

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"tribeboard/internal/database"
)

// SQLDatabase stores records in a cloud_records table of a remote SQL database
type SQLDatabase struct {
	db    *database.DB
	clock *clock
}

// NewSQLDatabase wraps an open remote database connection
func NewSQLDatabase(db *database.DB) *SQLDatabase {
	return &SQLDatabase{db: db, clock: newClock(nil)}
}

// Close closes the underlying connection
func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the cloud_records table and its change counter if needed
func (s *SQLDatabase) EnsureSchema(ctx context.Context) error {
	var ddl []string
	switch s.db.Dialect.Name() {
	case "postgres":
		ddl = []string{`CREATE TABLE IF NOT EXISTS cloud_records (
			record_type TEXT NOT NULL,
			record_name TEXT NOT NULL,
			fields TEXT NOT NULL,
			change_tag TEXT NOT NULL,
			modified_at BIGINT NOT NULL,
			change_seq BIGINT NOT NULL,
			PRIMARY KEY (record_type, record_name)
		)`,
			`CREATE INDEX IF NOT EXISTS idx_cloud_records_seq ON cloud_records(record_type, change_seq)`,
			`CREATE TABLE IF NOT EXISTS cloud_change_counter (id INTEGER PRIMARY KEY, last_seq BIGINT NOT NULL)`,
			`INSERT INTO cloud_change_counter (id, last_seq) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`}
	case "mysql":
		ddl = []string{`CREATE TABLE IF NOT EXISTS cloud_records (
			record_type VARCHAR(64) NOT NULL,
			record_name VARCHAR(255) NOT NULL,
			fields JSON NOT NULL,
			change_tag VARCHAR(36) NOT NULL,
			modified_at BIGINT NOT NULL,
			change_seq BIGINT NOT NULL,
			PRIMARY KEY (record_type, record_name),
			INDEX idx_cloud_records_seq (record_type, change_seq)
		) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS cloud_change_counter (id INT PRIMARY KEY, last_seq BIGINT NOT NULL) ENGINE=InnoDB`,
			`INSERT IGNORE INTO cloud_change_counter (id, last_seq) VALUES (1, 0)`}
	default:
		ddl = []string{`CREATE TABLE IF NOT EXISTS cloud_records (
			record_type TEXT NOT NULL,
			record_name TEXT NOT NULL,
			fields TEXT NOT NULL,
			change_tag TEXT NOT NULL,
			modified_at BIGINT NOT NULL,
			change_seq BIGINT NOT NULL,
			PRIMARY KEY (record_type, record_name)
		)`,
			`CREATE INDEX IF NOT EXISTS idx_cloud_records_seq ON cloud_records(record_type, change_seq)`,
			`CREATE TABLE IF NOT EXISTS cloud_change_counter (id INTEGER PRIMARY KEY, last_seq BIGINT NOT NULL)`,
			`INSERT OR IGNORE INTO cloud_change_counter (id, last_seq) VALUES (1, 0)`}
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return classifySQLError(fmt.Errorf("failed to create cloud_records: %w", err))
		}
	}
	return nil
}

// Save bumps the change counter inside the write transaction. The counter row
// stays locked until commit, so sequences become visible to readers in order.
func (s *SQLDatabase) Save(ctx context.Context, rec *Record) (*Record, error) {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record fields: %w", err)
	}

	stored := rec.Clone()
	stored.ChangeTag = uuid.NewString()
	stored.ModifiedAt = s.clock.next()

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE cloud_change_counter SET last_seq = last_seq + 1 WHERE id = 1"); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, "SELECT last_seq FROM cloud_change_counter WHERE id = 1").Scan(&stored.Sequence); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			"UPDATE cloud_records SET fields = ?, change_tag = ?, modified_at = ?, change_seq = ? WHERE record_type = ? AND record_name = ?",
			string(fields), stored.ChangeTag, stored.ModifiedAt.UnixNano(), stored.Sequence, rec.RecordType, rec.RecordName)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO cloud_records (record_type, record_name, fields, change_tag, modified_at, change_seq) VALUES (?, ?, ?, ?, ?, ?)",
			rec.RecordType, rec.RecordName, string(fields), stored.ChangeTag, stored.ModifiedAt.UnixNano(), stored.Sequence)
		return err
	})
	if err != nil {
		return nil, classifySQLError(fmt.Errorf("failed to save record %s/%s: %w", rec.RecordType, rec.RecordName, err))
	}
	return stored, nil
}

func (s *SQLDatabase) Fetch(ctx context.Context, recordType, name string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT record_type, record_name, fields, change_tag, modified_at, change_seq FROM cloud_records WHERE record_type = ? AND record_name = ?",
		recordType, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", recordType, name, ErrRecordNotFound)
	}
	if err != nil {
		return nil, classifySQLError(fmt.Errorf("failed to fetch record %s/%s: %w", recordType, name, err))
	}
	return rec, nil
}

func (s *SQLDatabase) Delete(ctx context.Context, recordType, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cloud_records WHERE record_type = ? AND record_name = ?", recordType, name)
	if err != nil {
		return classifySQLError(fmt.Errorf("failed to delete record %s/%s: %w", recordType, name, err))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s/%s: %w", recordType, name, ErrRecordNotFound)
	}
	return nil
}

func (s *SQLDatabase) ChangesSince(ctx context.Context, recordType string, since int64) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT record_type, record_name, fields, change_tag, modified_at, change_seq FROM cloud_records WHERE record_type = ? AND change_seq > ? ORDER BY change_seq ASC",
		recordType, since)
	if err != nil {
		return nil, classifySQLError(fmt.Errorf("failed to query changes for %s: %w", recordType, err))
	}
	defer rows.Close()

	var changes []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		changes = append(changes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLError(err)
	}
	return changes, nil
}

func (s *SQLDatabase) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		fields     string
		modifiedAt int64
	)
	if err := row.Scan(&rec.RecordType, &rec.RecordName, &fields, &rec.ChangeTag, &modifiedAt, &rec.Sequence); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode record fields: %w", err)
	}
	rec.ModifiedAt = time.Unix(0, modifiedAt).UTC()
	return &rec, nil
}

// classifySQLError marks connectivity failures as ErrUnavailable
func classifySQLError(err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
