// Package storage defines persistence contracts for profile service state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/emberstream/platform/internal/services/profile/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a write predicate matched zero rows or a
// uniqueness-constrained value is already taken.
var ErrConflict = errors.New("write conflict")

// Session stores one authenticated session row.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Follow stores one user-to-channel follow relation. A row with
// Following=false records an explicit unfollow; the relation is an
// upsertable fact, not set membership.
type Follow struct {
	UserID    string
	ChannelID string
	Following bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStore applies profile mutations as single durable write units.
type UserStore interface {
	// GetUser fetches one user record by ID.
	GetUser(ctx context.Context, userID string) (domain.User, error)

	// UpdateUserEmail sets email, clears email_verified, and stamps
	// updated_at. A uniqueness violation surfaces as ErrConflict.
	UpdateUserEmail(ctx context.Context, userID string, email string, now time.Time) (domain.User, error)

	// UpdateUserDisplayName sets display_name only when the row still
	// carries expectedUsername. Zero matched rows surface as ErrConflict;
	// this predicate is the authoritative enforcement of the
	// display-name/username case invariant under races.
	UpdateUserDisplayName(ctx context.Context, userID string, expectedUsername string, displayName string, now time.Time) (domain.User, error)

	// UpdateUserDisplayColor sets display_color and stamps updated_at.
	UpdateUserDisplayColor(ctx context.Context, userID string, color domain.DisplayColor, now time.Time) (domain.User, error)

	// UpdateUserPassword sets password_hash and deletes every session of
	// the user except keepSessionID, atomically.
	UpdateUserPassword(ctx context.Context, userID string, passwordHash string, keepSessionID string, now time.Time) (domain.User, error)
}

// SessionStore resolves session rows for identity verification.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (Session, error)
}

// FollowStore persists user-to-channel follow relations.
type FollowStore interface {
	// SetFollow upserts the (user, channel) relation to the requested
	// state; idempotent under repetition with the same arguments.
	SetFollow(ctx context.Context, userID string, channelID string, following bool, now time.Time) error

	GetFollow(ctx context.Context, userID string, channelID string) (Follow, error)
}
