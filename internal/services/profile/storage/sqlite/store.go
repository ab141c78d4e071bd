// Package sqlite provides SQLite-backed persistence for profile state.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/emberstream/platform/internal/platform/storage/sqlitemigrate"
	"github.com/emberstream/platform/internal/services/profile/domain"
	"github.com/emberstream/platform/internal/services/profile/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for profile service state.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a profile SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

type scanner func(dest ...any) error

func scanUser(scan scanner) (domain.User, error) {
	var u domain.User
	var emailVerified int
	var displayColor int64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&u.Email,
		&emailVerified,
		&displayColor,
		&u.PasswordHash,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.User{}, err
	}
	u.EmailVerified = emailVerified != 0
	u.DisplayColor = domain.DisplayColor(displayColor)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

const userColumns = "id, username, display_name, email, email_verified, display_color, password_hash, created_at, updated_at"

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed")
}
