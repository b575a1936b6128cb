package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/internal/identity"
)

// CallerFromContext returns the request principal seeded by Identify, or a
// zero caller when the route is not behind it.
func CallerFromContext(ctx context.Context) identity.Caller {
	caller, _ := identity.FromContext(ctx)
	return caller
}

// UserIDFromContext returns the signed-in account id. Guests and anonymous
// requests report false.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return CallerFromContext(ctx).Identity.UserID()
}

// GuestSessionFromContext returns the guest cart session, or "" for accounts.
func GuestSessionFromContext(ctx context.Context) string {
	id := CallerFromContext(ctx).Identity
	if !id.IsGuest() {
		return ""
	}
	return id.ID
}
