package shared

import (
	"context"

	"github.com/google/uuid"
)

// RequestContext carries the resolved identity for one request: who the
// user is, which organization they act in, and the role they hold there.
// It is constructed once by the tenant middleware and threaded explicitly
// through every service call; no module resolves tenancy on its own.
type RequestContext struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   string
}

type sessionContextKey struct{}

type requestContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithRequestContext stores the resolved tenant identity in context.
func ContextWithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFromContext extracts the tenant identity. The second return
// is false when the tenant middleware has not run, which every guarded
// handler must treat as ErrTenantScope.
func RequestContextFromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	if !ok || rc.OrgID == uuid.Nil {
		return RequestContext{}, false
	}
	return rc, true
}
