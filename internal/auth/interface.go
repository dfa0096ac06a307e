package auth

import "inkwell/internal/domain/models"

// JWTVerifier validates bearer tokens for the API.
type JWTVerifier interface {
	// VerifyToken validates a JWT and returns its claims. Any failure is
	// reported as domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.UserClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
