package enums

import "slices"

// IdentityKind distinguishes guest carts (keyed by session) from user carts.
type IdentityKind string

const (
	IdentityGuest IdentityKind = "guest"
	IdentityUser  IdentityKind = "user"
)

var validIdentityKinds = []IdentityKind{
	IdentityGuest,
	IdentityUser,
}

func (k IdentityKind) String() string {
	return string(k)
}

func (k IdentityKind) IsValid() bool {
	return slices.Contains(validIdentityKinds, k)
}

func ParseIdentityKind(value string) (IdentityKind, error) {
	return parse(validIdentityKinds, value, "identity kind")
}
