// Package mutation orchestrates authenticated profile mutations.
//
// Every operation resolves the actor from the request context, validates
// input, writes through storage, and for observable changes broadcasts an
// event after the write commits. The write and the broadcast are not
// atomic: a publish failure is reported as PUBLISH_FAILURE while the
// committed state stands.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberstream/platform/internal/platform/requestctx"
	"github.com/emberstream/platform/internal/services/profile/domain"
	"github.com/emberstream/platform/internal/services/profile/events"
	"github.com/emberstream/platform/internal/services/profile/loader"
	"github.com/emberstream/platform/internal/services/profile/storage"
)

const maxDisplayNameLength = 64

// Service executes profile mutations for the authenticated user.
type Service struct {
	users   storage.UserStore
	follows storage.FollowStore
	loader  *loader.UserLoader
	emitter *events.Emitter
	now     func() time.Time
}

// NewService wires a mutation service. The clock defaults to time.Now.
func NewService(users storage.UserStore, follows storage.FollowStore, userLoader *loader.UserLoader, emitter *events.Emitter, now func() time.Time) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if follows == nil {
		return nil, fmt.Errorf("follow store is required")
	}
	if userLoader == nil {
		return nil, fmt.Errorf("user loader is required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		users:   users,
		follows: follows,
		loader:  userLoader,
		emitter: emitter,
		now:     now,
	}, nil
}

// ChangeEmail replaces the actor's email address and clears its verified
// flag. No event is broadcast; verification flows react to the pending
// state directly. Address format is the binding layer's concern; beyond
// requiring a non-blank value this stage always attempts the write.
func (s *Service) ChangeEmail(ctx context.Context, email string) (domain.User, error) {
	session, err := actor(ctx)
	if err != nil {
		return domain.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, Invalid("email is required", "email")
	}

	user, err := s.users.UpdateUserEmail(ctx, session.UserID, email, s.now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return domain.User{}, Wrap(CodeNotFound, "user no longer exists", err)
		case errors.Is(err, storage.ErrConflict):
			return domain.User{}, Wrap(CodeConflict, "email is already in use", err)
		default:
			return domain.User{}, Wrap(CodePersistenceFailure, "update email", err)
		}
	}
	return user, nil
}

// ChangeDisplayName replaces the actor's display name. The new name must
// match the account's username ignoring case, and the write is guarded by
// the username the actor saw so a concurrent rename surfaces as CONFLICT.
func (s *Service) ChangeDisplayName(ctx context.Context, displayName string) (domain.User, error) {
	session, err := actor(ctx)
	if err != nil {
		return domain.User{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.User{}, Invalid("display name is required", "displayName")
	}
	if len(displayName) > maxDisplayNameLength {
		return domain.User{}, Invalid("display name is too long", "displayName")
	}

	current, err := s.loader.Load(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, Wrap(CodeNotFound, "user no longer exists", err)
		}
		return domain.User{}, Wrap(CodePersistenceFailure, "load user", err)
	}
	if !domain.DisplayNameMatchesUsername(displayName, current.Username) {
		return domain.User{}, Invalid("display name must match username ignoring case", "displayName")
	}

	user, err := s.users.UpdateUserDisplayName(ctx, session.UserID, current.Username, displayName, s.now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			return domain.User{}, Wrap(CodeConflict, "username changed concurrently", err)
		case errors.Is(err, storage.ErrNotFound):
			return domain.User{}, Wrap(CodeNotFound, "user no longer exists", err)
		default:
			return domain.User{}, Wrap(CodePersistenceFailure, "update display name", err)
		}
	}

	if err := s.emitter.EmitDisplayNameChanged(ctx, user.ID, user.DisplayName); err != nil {
		return user, Wrap(CodePublishFailure, "display name changed but event broadcast failed", err)
	}
	return user, nil
}

// ChangeDisplayColor replaces the actor's display color. The color is
// given as a #RRGGBB string.
func (s *Service) ChangeDisplayColor(ctx context.Context, displayColor string) (domain.User, error) {
	session, err := actor(ctx)
	if err != nil {
		return domain.User{}, err
	}
	color, err := domain.ParseDisplayColor(displayColor)
	if err != nil {
		return domain.User{}, Invalid("display color must be #RRGGBB", "displayColor")
	}

	user, err := s.users.UpdateUserDisplayColor(ctx, session.UserID, color, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, Wrap(CodeNotFound, "user no longer exists", err)
		}
		return domain.User{}, Wrap(CodePersistenceFailure, "update display color", err)
	}

	if err := s.emitter.EmitDisplayColorChanged(ctx, user.ID, user.DisplayColor.String()); err != nil {
		return user, Wrap(CodePublishFailure, "display color changed but event broadcast failed", err)
	}
	return user, nil
}

// ChangePassword replaces the actor's password after verifying the
// current one. Every other session of the user is revoked in the same
// transaction; the calling session survives. No event is broadcast.
// Strength policy for the new password lives at the binding layer; this
// stage only verifies the current password.
func (s *Service) ChangePassword(ctx context.Context, currentPassword, newPassword string) (domain.User, error) {
	session, err := actor(ctx)
	if err != nil {
		return domain.User{}, err
	}

	current, err := s.loader.Load(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, Wrap(CodeNotFound, "user no longer exists", err)
		}
		return domain.User{}, Wrap(CodePersistenceFailure, "load user", err)
	}
	if !current.VerifyPassword(currentPassword) {
		return domain.User{}, Invalid("wrong password", "password")
	}

	hash, err := domain.HashPassword(newPassword)
	if err != nil {
		return domain.User{}, Wrap(CodePersistenceFailure, "hash password", err)
	}

	user, err := s.users.UpdateUserPassword(ctx, session.UserID, hash, session.ID, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, Wrap(CodeNotFound, "user no longer exists", err)
		}
		return domain.User{}, Wrap(CodePersistenceFailure, "update password", err)
	}
	return user, nil
}

// SetFollow records whether the actor follows a channel. The write is an
// upsert, so repeating a state is not an error. Both the user and the
// channel follow subjects are notified after the write commits.
func (s *Service) SetFollow(ctx context.Context, channelID string, following bool) error {
	session, err := actor(ctx)
	if err != nil {
		return err
	}
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return Invalid("channel id is required", "channelId")
	}
	if channelID == session.UserID {
		return Invalid("cannot follow yourself", "channelId")
	}

	if err := s.follows.SetFollow(ctx, session.UserID, channelID, following, s.now()); err != nil {
		return Wrap(CodePersistenceFailure, "set follow", err)
	}

	if err := s.emitter.EmitFollowChanged(ctx, session.UserID, channelID, following); err != nil {
		return Wrap(CodePublishFailure, "follow changed but event broadcast failed", err)
	}
	return nil
}

// actor resolves the authenticated session from the request context.
func actor(ctx context.Context) (requestctx.Session, error) {
	session, ok := requestctx.SessionFromContext(ctx)
	if !ok {
		return requestctx.Session{}, New(CodeUnauthenticated, "request is not authenticated")
	}
	return session, nil
}
