package tenant

import "context"

// Resolved is the immutable outcome of tenant resolution for one request. It
// is constructed exactly once, before any handler logic runs, and threaded
// through the request context. A zero Resolved means no tenant was implied by
// the request (root-domain traffic), which is legitimate and distinct from a
// resolution failure.
type Resolved struct {
	TenantID   string
	RoutingKey string
}

type contextKey string

const resolvedKey contextKey = "resolved_tenant"

// WithResolved returns a context carrying the resolved tenant.
func WithResolved(ctx context.Context, r Resolved) context.Context {
	return context.WithValue(ctx, resolvedKey, r)
}

// ResolvedFromContext retrieves the resolved tenant, if any. The boolean is
// false when the request arrived without a tenant signal.
func ResolvedFromContext(ctx context.Context) (Resolved, bool) {
	r, ok := ctx.Value(resolvedKey).(Resolved)
	if !ok || r.TenantID == "" {
		return Resolved{}, false
	}
	return r, true
}
