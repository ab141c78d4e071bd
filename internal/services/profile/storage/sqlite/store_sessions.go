package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/emberstream/platform/internal/services/profile/storage"
)

// PutSession persists one session row. Session issuance lives in the auth
// service; this seeds rows for wiring and tests.
func (s *Store) PutSession(ctx context.Context, session storage.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	session.ID = strings.TrimSpace(session.ID)
	session.UserID = strings.TrimSpace(session.UserID)
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if session.UserID == "" {
		return fmt.Errorf("session user id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO user_sessions (id, user_id, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		created_at = excluded.created_at
	`, session.ID, session.UserID, toMillis(session.CreatedAt))
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession fetches one session row by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (storage.Session, error) {
	if err := ctx.Err(); err != nil {
		return storage.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Session{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.Session{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, created_at
FROM user_sessions
WHERE id = ?
`, sessionID)
	var session storage.Session
	var createdAt int64
	if err := row.Scan(&session.ID, &session.UserID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Session{}, storage.ErrNotFound
		}
		return storage.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.CreatedAt = fromMillis(createdAt)
	return session, nil
}
