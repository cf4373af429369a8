// Package tenant carries the authenticated tenant identity through request
// contexts and enforces tenant scoping on every statement that touches
// tenant-owned data.
package tenant

import (
	"context"
)

type contextKey string

const tenantKey contextKey = "tenant"

// Context is the per-request value carrying the authenticated tenant and
// requester identity. It is produced upstream by the token-verification
// collaborator and never constructed from untrusted input.
type Context struct {
	// CompanyID is the owning tenant's identifier. Zero means unauthenticated.
	CompanyID int64
	// UserID identifies the requester within the tenant.
	UserID int64
	// Profile is the requester's role ("admin", "user").
	Profile string
}

// Valid reports whether the context identifies a tenant.
func (c Context) Valid() bool {
	return c.CompanyID > 0
}

// With attaches a tenant context to ctx.
func With(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, tenantKey, tc)
}

// From retrieves the tenant context from ctx.
func From(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(tenantKey).(Context)
	return tc, ok
}
