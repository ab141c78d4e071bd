package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/emberstream/platform/internal/services/profile/domain"
	"github.com/emberstream/platform/internal/services/profile/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "profile.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, id, username, email string) domain.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	u := domain.User{
		ID:            id,
		Username:      username,
		DisplayName:   username,
		Email:         email,
		EmailVerified: true,
		DisplayColor:  0x336699,
		PasswordHash:  "hash-" + id,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.PutUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

func listSessionIDs(t *testing.T, store *Store, userID string) []string {
	t.Helper()
	rows, err := store.sqlDB.QueryContext(context.Background(), `
SELECT id FROM user_sessions WHERE user_id = ? ORDER BY id ASC
`, userID)
	if err != nil {
		t.Fatalf("list sessions for %s: %v", userID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan session row: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate session rows: %v", err)
	}
	return ids
}

func countFollows(t *testing.T, store *Store, userID, channelID string) int {
	t.Helper()
	var count int
	if err := store.sqlDB.QueryRowContext(context.Background(), `
SELECT COUNT(1) FROM channel_user WHERE user_id = ? AND channel_id = ?
`, userID, channelID).Scan(&count); err != nil {
		t.Fatalf("count follows: %v", err)
	}
	return count
}

func seedSession(t *testing.T, store *Store, id, userID string) {
	t.Helper()
	if err := store.PutSession(context.Background(), storage.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed session %s: %v", id, err)
	}
}

func TestPutGetUserRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seeded := seedUser(t, store, "user-1", "Alice", "alice@example.com")

	got, err := store.GetUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Username != "Alice" {
		t.Fatalf("username = %q, want Alice", got.Username)
	}
	if got.Email != seeded.Email {
		t.Fatalf("email = %q, want %q", got.Email, seeded.Email)
	}
	if !got.EmailVerified {
		t.Fatal("expected seeded email to be verified")
	}
	if got.DisplayColor != 0x336699 {
		t.Fatalf("display color = %v, want 0x336699", got.DisplayColor)
	}
	if !got.CreatedAt.Equal(seeded.CreatedAt) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, seeded.CreatedAt)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetUser(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserEmailClearsVerification(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")

	now := time.Now().UTC().Add(time.Minute).Truncate(time.Millisecond)
	updated, err := store.UpdateUserEmail(context.Background(), "user-1", "new@example.com", now)
	if err != nil {
		t.Fatalf("update email: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Fatalf("email = %q, want new@example.com", updated.Email)
	}
	if updated.EmailVerified {
		t.Fatal("expected email_verified to reset to false")
	}
	if !updated.UpdatedAt.Equal(now) {
		t.Fatalf("updated at = %v, want %v", updated.UpdatedAt, now)
	}
}

func TestUpdateUserEmailNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.UpdateUserEmail(context.Background(), "missing", "new@example.com", time.Now())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserEmailUniquenessConflict(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")
	seedUser(t, store, "user-2", "Bob", "bob@example.com")

	_, err := store.UpdateUserEmail(context.Background(), "user-2", "alice@example.com", time.Now())
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	unchanged, getErr := store.GetUser(context.Background(), "user-2")
	if getErr != nil {
		t.Fatalf("get user after conflict: %v", getErr)
	}
	if unchanged.Email != "bob@example.com" {
		t.Fatalf("email after conflict = %q, want bob@example.com", unchanged.Email)
	}
}

func TestUpdateUserDisplayNameGuardedByUsername(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")

	now := time.Now().UTC().Truncate(time.Millisecond)
	updated, err := store.UpdateUserDisplayName(context.Background(), "user-1", "Alice", "alice", now)
	if err != nil {
		t.Fatalf("update display name: %v", err)
	}
	if updated.DisplayName != "alice" {
		t.Fatalf("display name = %q, want alice", updated.DisplayName)
	}
}

func TestUpdateUserDisplayNameStaleUsernameConflict(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")

	_, err := store.UpdateUserDisplayName(context.Background(), "user-1", "OldName", "oldname", time.Now())
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	unchanged, getErr := store.GetUser(context.Background(), "user-1")
	if getErr != nil {
		t.Fatalf("get user after conflict: %v", getErr)
	}
	if unchanged.DisplayName != "Alice" {
		t.Fatalf("display name after conflict = %q, want Alice", unchanged.DisplayName)
	}
}

func TestUpdateUserDisplayColor(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")

	updated, err := store.UpdateUserDisplayColor(context.Background(), "user-1", 0xFF0000, time.Now())
	if err != nil {
		t.Fatalf("update display color: %v", err)
	}
	if updated.DisplayColor != 0xFF0000 {
		t.Fatalf("display color = %v, want 0xFF0000", updated.DisplayColor)
	}
}

func TestUpdateUserPasswordRevokesOtherSessions(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")
	seedUser(t, store, "user-2", "Bob", "bob@example.com")
	seedSession(t, store, "sess-keep", "user-1")
	seedSession(t, store, "sess-other-1", "user-1")
	seedSession(t, store, "sess-other-2", "user-1")
	seedSession(t, store, "sess-bob", "user-2")

	updated, err := store.UpdateUserPassword(context.Background(), "user-1", "new-hash", "sess-keep", time.Now())
	if err != nil {
		t.Fatalf("update password: %v", err)
	}
	if updated.PasswordHash != "new-hash" {
		t.Fatalf("password hash = %q, want new-hash", updated.PasswordHash)
	}

	ids := listSessionIDs(t, store, "user-1")
	if len(ids) != 1 || ids[0] != "sess-keep" {
		t.Fatalf("sessions after password change = %v, want [sess-keep]", ids)
	}

	// Other users' sessions are untouched.
	bobIDs := listSessionIDs(t, store, "user-2")
	if len(bobIDs) != 1 {
		t.Fatalf("bob sessions = %v, want one", bobIDs)
	}

	// The surviving session still resolves.
	if _, err := store.GetSession(context.Background(), "sess-keep"); err != nil {
		t.Fatalf("get surviving session: %v", err)
	}
}

func TestUpdateUserPasswordNotFoundLeavesSessions(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")
	seedSession(t, store, "sess-1", "user-1")

	_, err := store.UpdateUserPassword(context.Background(), "missing", "new-hash", "sess-x", time.Now())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ids := listSessionIDs(t, store, "user-1")
	if len(ids) != 1 {
		t.Fatalf("sessions after failed password change = %v, want one", ids)
	}
}

func TestSetFollowUpsertIdempotent(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")

	now := time.Now().UTC()
	if err := store.SetFollow(context.Background(), "user-1", "channel-1", true, now); err != nil {
		t.Fatalf("set follow: %v", err)
	}
	if err := store.SetFollow(context.Background(), "user-1", "channel-1", true, now.Add(time.Second)); err != nil {
		t.Fatalf("set follow again: %v", err)
	}

	if count := countFollows(t, store, "user-1", "channel-1"); count != 1 {
		t.Fatalf("follow rows = %d, want 1", count)
	}

	follow, err := store.GetFollow(context.Background(), "user-1", "channel-1")
	if err != nil {
		t.Fatalf("get follow: %v", err)
	}
	if !follow.Following {
		t.Fatal("expected following = true")
	}
}

func TestSetFollowUnfollowKeepsRow(t *testing.T) {
	store := openTestStore(t)
	seedUser(t, store, "user-1", "Alice", "alice@example.com")

	now := time.Now().UTC()
	if err := store.SetFollow(context.Background(), "user-1", "channel-1", true, now); err != nil {
		t.Fatalf("set follow: %v", err)
	}
	if err := store.SetFollow(context.Background(), "user-1", "channel-1", false, now.Add(time.Second)); err != nil {
		t.Fatalf("unfollow: %v", err)
	}

	follow, err := store.GetFollow(context.Background(), "user-1", "channel-1")
	if err != nil {
		t.Fatalf("get follow after unfollow: %v", err)
	}
	if follow.Following {
		t.Fatal("expected following = false")
	}

	if count := countFollows(t, store, "user-1", "channel-1"); count != 1 {
		t.Fatalf("follow rows after unfollow = %d, want 1", count)
	}
}

func TestGetFollowNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetFollow(context.Background(), "user-1", "channel-1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetSession(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
