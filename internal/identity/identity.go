// Package identity models who owns a cart or checkout: either an anonymous
// guest session or an authenticated user.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

// Identity is the tagged owner key used uniformly by the cart and checkout stores.
type Identity struct {
	Kind enums.IdentityKind
	ID   string
}

// Guest builds a guest identity keyed by the cart session id.
func Guest(sessionID string) Identity {
	return Identity{Kind: enums.IdentityGuest, ID: strings.TrimSpace(sessionID)}
}

// User builds an identity for an authenticated account.
func User(userID uuid.UUID) Identity {
	return Identity{Kind: enums.IdentityUser, ID: userID.String()}
}

func (i Identity) IsGuest() bool {
	return i.Kind == enums.IdentityGuest
}

func (i Identity) IsUser() bool {
	return i.Kind == enums.IdentityUser
}

func (i Identity) IsZero() bool {
	return i.Kind == "" && i.ID == ""
}

// UserID parses the account id of a user identity.
func (i Identity) UserID() (uuid.UUID, bool) {
	if !i.IsUser() {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(i.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Validate rejects identities that cannot own a cart.
func (i Identity) Validate() error {
	if !i.Kind.IsValid() {
		return fmt.Errorf("invalid identity kind %q", i.Kind)
	}
	if i.ID == "" {
		return fmt.Errorf("%s identity requires an id", i.Kind)
	}
	if i.IsUser() {
		if _, ok := i.UserID(); !ok {
			return fmt.Errorf("user identity id %q is not a uuid", i.ID)
		}
	}
	return nil
}

// Equal reports whether both identities name the same owner.
func (i Identity) Equal(other Identity) bool {
	return i.Kind == other.Kind && i.ID == other.ID
}

func (i Identity) String() string {
	if i.IsZero() {
		return ""
	}
	return string(i.Kind) + ":" + i.ID
}

// Caller is the request principal: the owning identity plus privilege flags.
type Caller struct {
	Identity Identity
	Email    string
	IsAdmin  bool
}

// GuestCaller is a convenience for anonymous callers.
func GuestCaller(sessionID string) Caller {
	return Caller{Identity: Guest(sessionID)}
}

// UserCaller is a convenience for authenticated callers.
func UserCaller(userID uuid.UUID, email string, admin bool) Caller {
	return Caller{Identity: User(userID), Email: email, IsAdmin: admin}
}

type ctxKey struct{}

// WithCaller stores the caller on the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, caller)
}

// FromContext returns the caller stored on the context, if any.
func FromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(ctxKey{}).(Caller)
	return caller, ok
}
