package database

import (
	"context"
	"path/filepath"
	"testing"
)

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "test_integration.db"), "")
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	applied, err := db.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected migrations to be applied on a fresh database")
	}

	// Test that tables were created by migrations
	tables := []string{"user_profiles", "families", "memberships", "sessions", "invitations", "sync_state"}

	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		if err := db.QueryRowContext(ctx, query, table).Scan(&name); err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Second run is a no-op
	applied, err = db.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("Failed to re-run migrations: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected no migrations on second run, got %v", applied)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	ctx := context.Background()

	db, err := OpenMemory(ctx)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if _, err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	insert := "INSERT INTO sync_state (record_type, last_change_seq) VALUES (?, ?)"

	// Test successful transaction
	err = db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, insert, "CKFamily", 1)
		return err
	})
	if err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_state WHERE record_type = ?", "CKFamily").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row, got %d", count)
	}

	// Test rollback
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, insert, "CKMembership", 1); err != nil {
			return err
		}
		return context.Canceled
	})
	if err != context.Canceled {
		t.Fatalf("WithTx() error = %v, want context.Canceled", err)
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_state WHERE record_type = ?", "CKMembership").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 rows after rollback, got %d", count)
	}
}

// TestMemoryDatabasesAreIsolated checks that each in-memory open is private
func TestMemoryDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()

	first, err := OpenMemory(ctx)
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer first.Close()
	second, err := OpenMemory(ctx)
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer second.Close()

	if _, err := first.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	var name string
	err = second.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='families'").Scan(&name)
	if err == nil {
		t.Error("second in-memory database should not see tables from the first")
	}
}
