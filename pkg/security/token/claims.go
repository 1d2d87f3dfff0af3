package token

import (
	"context"
	"slices"
	"time"
)

// WildcardPermission grants every permission.
const WildcardPermission = "*"

const typeAccess = "access"

// Claims is the verified identity of a caller.
type Claims struct {
	// Subject is the caller id. Idempotency keys are scoped to it.
	Subject     string
	Permissions []string
	// Type is "access" or "refresh". Only access tokens authenticate requests.
	Type      string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore time.Time
}

func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, WildcardPermission) ||
		slices.Contains(c.Permissions, permission)
}

// HasAnyPermission reports whether c holds at least one of permissions.
func (c *Claims) HasAnyPermission(permissions []string) bool {
	return slices.ContainsFunc(permissions, c.HasPermission)
}

func (c *Claims) IsAccess() bool {
	return c.Type == typeAccess
}

// IsExpired reports whether the token expired before now. A zero expiry
// never expires.
func (c *Claims) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

type claimsKey struct{}

// ContextWithClaims attaches the caller identity that scopes idempotency
// keys and issue lookups.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns nil for unauthenticated requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsKey{}).(*Claims); ok {
		return claims
	}
	return nil
}
