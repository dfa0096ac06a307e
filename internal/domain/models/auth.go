package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the JWT claim set accepted by the API.
type UserClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *UserClaims) GetUserID() string {
	return c.Subject
}
