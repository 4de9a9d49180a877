package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DB wraps the database connection with dialect support
type DB struct {
	*sql.DB
	Dialect Dialect
	Config  DialectConfig
}

// DialectFor maps a configured database type onto its dialect
func DialectFor(dbType string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// Open creates and configures a database connection for the given type.
// path is used by SQLite, url by PostgreSQL and MySQL.
func Open(ctx context.Context, dbType, path, url string) (*DB, error) {
	dialect, err := DialectFor(dbType)
	if err != nil {
		return nil, err
	}
	return OpenDialect(ctx, dialect, DialectConfig{Path: path, URL: url})
}

// OpenMemory opens a private in-memory SQLite database
func OpenMemory(ctx context.Context) (*DB, error) {
	return OpenDialect(ctx, NewSQLiteDialect(), DialectConfig{Path: MemoryPath})
}

// OpenDialect opens, pings and configures a connection using an explicit dialect
func OpenDialect(ctx context.Context, dialect Dialect, config DialectConfig) (*DB, error) {
	if dialect.Name() != "sqlite" && config.URL == "" {
		return nil, fmt.Errorf("database url is required for %s", dialect.Name())
	}
	if dialect.Name() == "sqlite" && config.Path == "" {
		return nil, fmt.Errorf("database path is required for sqlite")
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DSN(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply dialect-specific configuration before the first connection is made
	if err := dialect.ConfigureConnection(db, config); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Dialect: dialect, Config: config}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// QueryContext executes a query with automatic placeholder rewriting
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// QueryRowContext executes a query that returns a single row with automatic placeholder rewriting
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// ExecContext executes a query that doesn't return rows with automatic placeholder rewriting
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.RewriteQuery(query), args...)
}
