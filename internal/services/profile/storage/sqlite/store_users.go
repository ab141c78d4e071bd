package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberstream/platform/internal/services/profile/domain"
	"github.com/emberstream/platform/internal/services/profile/storage"
)

// PutUser persists one user row. Account creation itself lives outside the
// profile service; this seeds rows for wiring and tests.
func (s *Store) PutUser(ctx context.Context, u domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}

	emailVerified := 0
	if u.EmailVerified {
		emailVerified = 1
	}
	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO users (
		id, username, display_name, email, email_verified, display_color, password_hash, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		username = excluded.username,
		display_name = excluded.display_name,
		email = excluded.email,
		email_verified = excluded.email_verified,
		display_color = excluded.display_color,
		password_hash = excluded.password_hash,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
	`,
		u.ID,
		u.Username,
		u.DisplayName,
		u.Email,
		emailVerified,
		int64(u.DisplayColor),
		u.PasswordHash,
		toMillis(u.CreatedAt),
		toMillis(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser fetches one user record by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = ?
`, userID)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, storage.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateUserEmail sets the email, clears verification, and stamps updated_at.
func (s *Store) UpdateUserEmail(ctx context.Context, userID string, email string, now time.Time) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	email = strings.TrimSpace(email)
	if userID == "" {
		return domain.User{}, fmt.Errorf("user id is required")
	}
	if email == "" {
		return domain.User{}, fmt.Errorf("email is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users
SET email = ?, email_verified = 0, updated_at = ?
WHERE id = ?
`, email, toMillis(now), userID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.User{}, storage.ErrConflict
		}
		return domain.User{}, fmt.Errorf("update user email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.User{}, fmt.Errorf("update user email rows affected: %w", err)
	}
	if affected == 0 {
		return domain.User{}, storage.ErrNotFound
	}
	return s.GetUser(ctx, userID)
}

// UpdateUserDisplayName sets display_name only while the row still carries
// expectedUsername. The double predicate settles read-then-write races; zero
// matched rows surface as ErrConflict rather than silent success.
func (s *Store) UpdateUserDisplayName(ctx context.Context, userID string, expectedUsername string, displayName string, now time.Time) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(expectedUsername) == "" {
		return domain.User{}, fmt.Errorf("expected username is required")
	}
	if strings.TrimSpace(displayName) == "" {
		return domain.User{}, fmt.Errorf("display name is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users
SET display_name = ?, updated_at = ?
WHERE id = ? AND username = ?
`, displayName, toMillis(now), userID, expectedUsername)
	if err != nil {
		return domain.User{}, fmt.Errorf("update user display name: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.User{}, fmt.Errorf("update user display name rows affected: %w", err)
	}
	if affected == 0 {
		return domain.User{}, storage.ErrConflict
	}
	return s.GetUser(ctx, userID)
}

// UpdateUserDisplayColor sets display_color and stamps updated_at.
func (s *Store) UpdateUserDisplayColor(ctx context.Context, userID string, color domain.DisplayColor, now time.Time) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, fmt.Errorf("user id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users
SET display_color = ?, updated_at = ?
WHERE id = ?
`, int64(color), toMillis(now), userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("update user display color: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.User{}, fmt.Errorf("update user display color rows affected: %w", err)
	}
	if affected == 0 {
		return domain.User{}, storage.ErrNotFound
	}
	return s.GetUser(ctx, userID)
}

// UpdateUserPassword sets password_hash and revokes every other session of
// the user in one transaction. A failure between the two statements leaves
// the hash unchanged from the caller's perspective.
func (s *Store) UpdateUserPassword(ctx context.Context, userID string, passwordHash string, keepSessionID string, now time.Time) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	keepSessionID = strings.TrimSpace(keepSessionID)
	if userID == "" {
		return domain.User{}, fmt.Errorf("user id is required")
	}
	if passwordHash == "" {
		return domain.User{}, fmt.Errorf("password hash is required")
	}
	if keepSessionID == "" {
		return domain.User{}, fmt.Errorf("keep session id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("begin password write: %w", err)
	}
	rollbackWith := func(cause error) (domain.User, error) {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return domain.User{}, fmt.Errorf("%w: rollback password write: %v", cause, rollbackErr)
		}
		return domain.User{}, cause
	}

	result, err := tx.ExecContext(ctx, `
UPDATE users
SET password_hash = ?, updated_at = ?
WHERE id = ?
`, passwordHash, toMillis(now), userID)
	if err != nil {
		return rollbackWith(fmt.Errorf("update password hash: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return rollbackWith(fmt.Errorf("update password hash rows affected: %w", err))
	}
	if affected == 0 {
		return rollbackWith(storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM user_sessions
WHERE user_id = ? AND id != ?
`, userID, keepSessionID); err != nil {
		return rollbackWith(fmt.Errorf("revoke other sessions: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return domain.User{}, fmt.Errorf("commit password write: %w", err)
	}
	return s.GetUser(ctx, userID)
}
