// Package tenant carries the request-scoped tenant identity through the
// bridge's HTTP surface and into component calls.
package tenant

import "context"

type contextKey string

const idKey contextKey = "tenant_id"

// WithID returns a context carrying the given tenant ID.
func WithID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, idKey, tenantID)
}

// IDFromContext extracts the tenant ID stored by WithID. ok is false if no
// tenant ID has been set.
func IDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(idKey).(string)
	return v, ok
}
