package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

var errSubjectMismatch = errors.New("token subject does not match user id")

// AccessTokenPayload is what login hands to MintAccessToken.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims is the body of a storefront access token. The registered
// subject always mirrors UserID.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Email  string     `json:"email,omitempty"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

var _ jwt.ClaimsValidator = AccessTokenClaims{}

// Validate runs after the registered claims pass and rejects tokens whose
// custom claims could not have been minted by this service.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token carries no user id")
	}
	if c.Subject != c.UserID.String() {
		return errSubjectMismatch
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid role %q", c.Role)
	}
	return nil
}

func (c AccessTokenClaims) IsAdmin() bool {
	return c.Role == enums.RoleAdmin
}
