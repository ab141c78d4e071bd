package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emberstream/platform/internal/services/profile/storage"
)

type fakeSessionStore struct {
	sessions map[string]storage.Session
	err      error
}

func (s *fakeSessionStore) GetSession(_ context.Context, sessionID string) (storage.Session, error) {
	if s.err != nil {
		return storage.Session{}, s.err
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		return storage.Session{}, storage.ErrNotFound
	}
	return session, nil
}

func testConfig(now time.Time) Config {
	return Config{
		Issuer: "emberstream",
		Secret: []byte("test-secret"),
		Now:    func() time.Time { return now },
	}
}

func TestVerifyResolvesLiveSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(now)
	store := &fakeSessionStore{sessions: map[string]storage.Session{
		"sess-1": {ID: "sess-1", UserID: "user-1"},
	}}
	verifier, err := NewVerifier(cfg, store)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token, err := IssueToken(cfg, "sess-1", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	session, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.ID != "sess-1" || session.UserID != "user-1" {
		t.Fatalf("session = %+v", session)
	}
}

func TestVerifyRejectsRevokedSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(now)
	verifier, err := NewVerifier(cfg, &fakeSessionStore{sessions: map[string]storage.Session{}})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token, err := IssueToken(cfg, "sess-gone", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(issued)
	store := &fakeSessionStore{sessions: map[string]storage.Session{
		"sess-1": {ID: "sess-1", UserID: "user-1"},
	}}

	token, err := IssueToken(cfg, "sess-1", "user-1", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	late := testConfig(issued.Add(2 * time.Minute))
	verifier, err := NewVerifier(late, store)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeSessionStore{sessions: map[string]storage.Session{
		"sess-1": {ID: "sess-1", UserID: "user-1"},
	}}

	signer := testConfig(now)
	signer.Secret = []byte("other-secret")
	token, err := IssueToken(signer, "sess-1", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	verifier, err := NewVerifier(testConfig(now), store)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsSubjectMismatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(now)
	store := &fakeSessionStore{sessions: map[string]storage.Session{
		"sess-1": {ID: "sess-1", UserID: "user-1"},
	}}
	verifier, err := NewVerifier(cfg, store)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token, err := IssueToken(cfg, "sess-1", "someone-else", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsBlankToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier, err := NewVerifier(testConfig(now), &fakeSessionStore{})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), "   "); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestNewVerifierValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeSessionStore{}

	if _, err := NewVerifier(Config{Secret: []byte("s"), Now: func() time.Time { return now }}, store); err == nil {
		t.Fatal("expected error for missing issuer")
	}
	if _, err := NewVerifier(Config{Issuer: "emberstream", Now: func() time.Time { return now }}, store); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewVerifier(testConfig(now), nil); err == nil {
		t.Fatal("expected error for missing session store")
	}
}
