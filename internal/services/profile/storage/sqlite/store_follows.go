package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberstream/platform/internal/services/profile/storage"
)

// SetFollow upserts the (user, channel) relation to the requested state.
// Repeating the call with the same arguments leaves exactly one row.
func (s *Store) SetFollow(ctx context.Context, userID string, channelID string, following bool, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	channelID = strings.TrimSpace(channelID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if channelID == "" {
		return fmt.Errorf("channel id is required")
	}

	followingValue := 0
	if following {
		followingValue = 1
	}
	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO channel_user (user_id, channel_id, following, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id, channel_id) DO UPDATE SET
		following = excluded.following,
		updated_at = excluded.updated_at
	`, userID, channelID, followingValue, toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("set follow: %w", err)
	}
	return nil
}

// GetFollow fetches one follow relation by composite key.
func (s *Store) GetFollow(ctx context.Context, userID string, channelID string) (storage.Follow, error) {
	if err := ctx.Err(); err != nil {
		return storage.Follow{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Follow{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	channelID = strings.TrimSpace(channelID)
	if userID == "" {
		return storage.Follow{}, fmt.Errorf("user id is required")
	}
	if channelID == "" {
		return storage.Follow{}, fmt.Errorf("channel id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT user_id, channel_id, following, created_at, updated_at
FROM channel_user
WHERE user_id = ? AND channel_id = ?
`, userID, channelID)
	var follow storage.Follow
	var followingValue int
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(&follow.UserID, &follow.ChannelID, &followingValue, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Follow{}, storage.ErrNotFound
		}
		return storage.Follow{}, fmt.Errorf("get follow: %w", err)
	}
	follow.Following = followingValue != 0
	follow.CreatedAt = fromMillis(createdAt)
	follow.UpdatedAt = fromMillis(updatedAt)
	return follow, nil
}
