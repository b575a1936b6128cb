package enums

import "slices"

// Role is the coarse permission level carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	return slices.Contains(validRoles, r)
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	return parse(validRoles, value, "role")
}
