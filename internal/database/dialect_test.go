package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("DSN file", func(t *testing.T) {
		result := dialect.DSN(DialectConfig{Path: "./tribe.db"})
		expected := "file:./tribe.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
		if result != expected {
			t.Errorf("DSN() = %v, want %v", result, expected)
		}
	})

	t.Run("DSN memory", func(t *testing.T) {
		result := dialect.DSN(DialectConfig{Path: MemoryPath})
		expected := "file::memory:?_foreign_keys=on"
		if result != expected {
			t.Errorf("DSN() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestMySQLDSNParseTime(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "no params",
			url:      "user:pass@tcp(db:3306)/tribe",
			expected: "user:pass@tcp(db:3306)/tribe?parseTime=true",
		},
		{
			name:     "existing params",
			url:      "user:pass@tcp(db:3306)/tribe?charset=utf8mb4",
			expected: "user:pass@tcp(db:3306)/tribe?charset=utf8mb4&parseTime=true",
		},
		{
			name:     "explicit parseTime kept",
			url:      "user:pass@tcp(db:3306)/tribe?parseTime=false",
			expected: "user:pass@tcp(db:3306)/tribe?parseTime=false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewMySQLDialect().DSN(DialectConfig{URL: tt.url})
			if result != tt.expected {
				t.Errorf("DSN() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestPostgresDSNApplicationName(t *testing.T) {
	dialect := NewPostgresDialect()
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://u:p@db/tribe", "postgres://u:p@db/tribe?application_name=tribeboard"},
		{"postgresql://u:p@db/tribe?sslmode=disable", "postgresql://u:p@db/tribe?sslmode=disable&application_name=tribeboard"},
		{"host=db dbname=tribe", "host=db dbname=tribe application_name=tribeboard"},
		{"postgres://db/tribe?application_name=ops", "postgres://db/tribe?application_name=ops"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := dialect.DSN(DialectConfig{URL: tt.url}); got != tt.want {
				t.Errorf("DSN() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM families WHERE id = ?",
			expected: "SELECT * FROM families WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM families WHERE id = ?",
			expected: "SELECT * FROM families WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO families (name, code) VALUES (?, ?)",
			expected: "INSERT INTO families (name, code) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE memberships SET role = ?, status = ? WHERE id = ?",
			expected: "UPDATE memberships SET role = ?, status = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dbType  string
		want    string
		wantErr bool
	}{
		{dbType: "", want: "sqlite"},
		{dbType: "sqlite3", want: "sqlite"},
		{dbType: "PostgreSQL", want: "postgres"},
		{dbType: "mysql", want: "mysql"},
		{dbType: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			dialect, err := DialectFor(tt.dbType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DialectFor(%q) error = %v, wantErr %v", tt.dbType, err, tt.wantErr)
			}
			if err == nil && dialect.Name() != tt.want {
				t.Errorf("DialectFor(%q) = %v, want %v", tt.dbType, dialect.Name(), tt.want)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- comment line
CREATE TABLE a (id TEXT);

CREATE INDEX idx ON a(id);
`
	got := SplitStatements(content)
	if len(got) != 2 {
		t.Fatalf("SplitStatements() returned %d statements, want 2: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id TEXT)" {
		t.Errorf("first statement = %q", got[0])
	}
}

func TestIsUniqueViolation(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"sqlite unique", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite wrapped primary key", NewSQLiteDialect(), fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}), true},
		{"sqlite foreign key", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, false},
		{"sqlite other", NewSQLiteDialect(), other, false},
		{"postgres unique", NewPostgresDialect(), fmt.Errorf("update: %w", &pq.Error{Code: "23505"}), true},
		{"postgres not null", NewPostgresDialect(), &pq.Error{Code: "23502"}, false},
		{"mysql duplicate", NewMySQLDialect(), &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", NewMySQLDialect(), &mysql.MySQLError{Number: 1452}, false},
		{"nil", NewMySQLDialect(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
