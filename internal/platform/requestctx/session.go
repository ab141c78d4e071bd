// Package requestctx carries per-request identity through context.
package requestctx

import "context"

// Session identifies the authenticated session bound to a request.
type Session struct {
	ID     string
	UserID string
}

// sessionContextKey is the context key for the authenticated session.
type sessionContextKey struct{}

// WithSession stores the authenticated session in context.
func WithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFromContext returns the authenticated session stored in context.
// The second return value reports whether a session was present.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	value, ok := ctx.Value(sessionContextKey{}).(Session)
	if !ok || value.ID == "" || value.UserID == "" {
		return Session{}, false
	}
	return value, true
}
