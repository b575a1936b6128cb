package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

func TestGuestIdentity(t *testing.T) {
	id := Guest("  sess-123 ")
	if !id.IsGuest() || id.IsUser() {
		t.Fatalf("expected guest identity, got %+v", id)
	}
	if id.ID != "sess-123" {
		t.Fatalf("expected trimmed session id, got %q", id.ID)
	}
	if _, ok := id.UserID(); ok {
		t.Fatalf("guest identity should not expose a user id")
	}
	if err := id.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if id.String() != "guest:sess-123" {
		t.Fatalf("unexpected string form %q", id.String())
	}
}

func TestUserIdentity(t *testing.T) {
	userID := uuid.New()
	id := User(userID)
	got, ok := id.UserID()
	if !ok || got != userID {
		t.Fatalf("expected user id %s, got %s", userID, got)
	}
	if err := id.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if !id.Equal(User(userID)) {
		t.Fatalf("expected identities to be equal")
	}
	if id.Equal(Guest(userID.String())) {
		t.Fatalf("guest and user with the same id must differ")
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := []Identity{
		{},
		{Kind: enums.IdentityGuest},
		{Kind: enums.IdentityUser, ID: "not-a-uuid"},
		{Kind: "robot", ID: "x"},
	}
	for _, tc := range cases {
		if err := tc.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", tc)
		}
	}
}

func TestCallerContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no caller on empty context")
	}
	caller := UserCaller(uuid.New(), "admin@threadloom.in", true)
	ctx := WithCaller(context.Background(), caller)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatalf("expected caller on context")
	}
	if !got.IsAdmin || !got.Identity.Equal(caller.Identity) {
		t.Fatalf("unexpected caller %+v", got)
	}
}
