// Package auth resolves the caller's identity from bearer tokens and carries
// it through request contexts.
package auth

import (
	"context"
	"strings"
)

type ownerKey struct{}

// WithOwner returns ctx carrying the authenticated owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerID returns the authenticated owner id. Blank ids count as absent.
func OwnerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerKey{}).(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}
