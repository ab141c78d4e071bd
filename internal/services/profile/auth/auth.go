// Package auth verifies bearer session tokens for profile mutations.
//
// A session token is a signed JWT whose subject is the user id and whose
// jti is the session id. Verification checks the signature and expiry,
// then confirms the session row still exists and belongs to the subject:
// a password change revokes sessions by deleting their rows, so a token
// whose row is gone is rejected even while its signature is valid.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/emberstream/platform/internal/platform/requestctx"
	"github.com/emberstream/platform/internal/services/profile/storage"
)

// ErrUnauthenticated indicates the bearer token did not resolve to a
// live session.
var ErrUnauthenticated = errors.New("request is not authenticated")

const signingMethod = "HS256"

// Config defines how session tokens are signed and verified.
type Config struct {
	Issuer string
	Secret []byte
	Now    func() time.Time
}

// sessionClaims is the internal claims type used for JWT parsing.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// Verifier resolves bearer tokens to live sessions.
type Verifier struct {
	cfg      Config
	sessions storage.SessionStore
}

// NewVerifier creates a verifier backed by the given session store.
func NewVerifier(cfg Config, sessions storage.SessionStore) (*Verifier, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg, sessions: sessions}, nil
}

// Verify resolves a bearer token to the session it names. The returned
// session carries both the session id and the user id.
func (v *Verifier) Verify(ctx context.Context, token string) (requestctx.Session, error) {
	if v == nil {
		return requestctx.Session{}, errors.New("verifier is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return requestctx.Session{}, ErrUnauthenticated
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return v.cfg.Now().UTC() }),
	)
	if err != nil {
		return requestctx.Session{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	sessionID := strings.TrimSpace(parsed.ID)
	userID := strings.TrimSpace(parsed.Subject)
	if sessionID == "" || userID == "" {
		return requestctx.Session{}, ErrUnauthenticated
	}

	session, err := v.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return requestctx.Session{}, ErrUnauthenticated
		}
		return requestctx.Session{}, fmt.Errorf("load session: %w", err)
	}
	if session.UserID != userID {
		return requestctx.Session{}, ErrUnauthenticated
	}
	return requestctx.Session{ID: session.ID, UserID: session.UserID}, nil
}

// IssueToken signs a session token for an existing session row. The
// ttl bounds how long the token verifies; the row's deletion revokes it
// sooner.
func IssueToken(cfg Config, sessionID, userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(cfg.Issuer) == "" || len(cfg.Secret) == 0 {
		return "", fmt.Errorf("token signer is not configured")
	}
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("session id and user id are required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	issuedAt := now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}
