// Package loader provides read-side access to profile records with
// request collapsing: concurrent loads of the same user share one
// storage round trip.
package loader

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/emberstream/platform/internal/services/profile/domain"
	"github.com/emberstream/platform/internal/services/profile/storage"
)

// ErrStoreNotConfigured indicates the loader has no backing store.
var ErrStoreNotConfigured = errors.New("user store is not configured")

// UserReader is the subset of the user store the loader needs.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
}

// UserLoader collapses concurrent loads of the same user into one
// storage call. Results are not cached beyond the in-flight call, so a
// load issued after a mutation commits observes the committed row.
type UserLoader struct {
	reader UserReader
	group  singleflight.Group
}

// NewUserLoader creates a loader backed by the given reader.
func NewUserLoader(reader UserReader) *UserLoader {
	return &UserLoader{reader: reader}
}

// Load fetches one user by id.
func (l *UserLoader) Load(ctx context.Context, userID string) (domain.User, error) {
	if l == nil || l.reader == nil {
		return domain.User{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, storage.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	result, err, _ := l.group.Do(userID, func() (any, error) {
		return l.reader.GetUser(ctx, userID)
	})
	if err != nil {
		return domain.User{}, err
	}
	user, ok := result.(domain.User)
	if !ok {
		return domain.User{}, errors.New("unexpected load result type")
	}
	return user, nil
}
