package bridge

import (
	"context"
)

var resolutionCtxKey = &contextKey{"resolution"}

type contextKey struct {
	name string
}

// Resolution is the outcome of a successful guard check.
type Resolution struct {
	User    *User
	Payload *Payload
	Scope   Scope
}

// WithResolution sets the Resolution in the given context
func WithResolution(ctx context.Context, res *Resolution) context.Context {
	return context.WithValue(ctx, resolutionCtxKey, res)
}

// ResolutionFromContext finds the resolution from the context.
func ResolutionFromContext(ctx context.Context) (*Resolution, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(resolutionCtxKey).(*Resolution)
	return raw, ok && raw != nil
}

// UserFromContext returns the local user attached to the context.
func UserFromContext(ctx context.Context) (*User, bool) {
	res, ok := ResolutionFromContext(ctx)
	if !ok || res.User == nil {
		return nil, false
	}
	return res.User, true
}
