package session

import (
	"context"

	"github.com/and161185/libdesk/internal/model"
)

type ctxKey string

const sessionKey ctxKey = "libdesk.session"

// WithSession stores a loaded session in context.
func WithSession(ctx context.Context, s model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext fetches the session from context.
func FromContext(ctx context.Context) (model.Session, bool) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return model.Session{}, false
	}
	s, ok := v.(model.Session)
	return s, ok
}
