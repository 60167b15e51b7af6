package auth

import (
	"context"
	"time"
)

type contextKey string

const sessionKey contextKey = "session"

// Session is the caller's admin state for one request. The zero value is a
// visitor.
type Session struct {
	IsAdmin  bool
	IssuedAt time.Time
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey).(Session)
	return s
}
