package shared

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// SessionUserID returns the numeric ID of the signed-in user. A missing
// session or user yields ErrNoSessionUser; a malformed ID wraps it.
func SessionUserID(sess *Session) (int64, error) {
	if sess == nil {
		return 0, ErrNoSessionUser
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, ErrNoSessionUser
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: malformed user id %q", ErrNoSessionUser, raw)
	}
	return id, nil
}
