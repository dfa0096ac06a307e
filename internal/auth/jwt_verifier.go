package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier verifies asymmetric tokens against keys published at a JWKS URL.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWKSVerifier creates a verifier that fetches public keys from jwksURL.
// keyfunc caches the keys and refreshes them based on HTTP cache headers.
func NewJWKSVerifier(jwksURL string, logger *slog.Logger) (JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "mode", "jwks", "jwks_url", jwksURL)

	return &JWKSVerifier{
		jwks:   jwks,
		logger: logger,
	}, nil
}

// VerifyToken accepts RS256 and ES256 tokens signed by a published key.
func (v *JWKSVerifier) VerifyToken(tokenString string) (*models.UserClaims, error) {
	return verify(tokenString, v.jwks.Keyfunc, []string{"RS256", "ES256"}, v.logger)
}

// Close is a no-op; keyfunc v3 manages its own refresh goroutine.
func (v *JWKSVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}

// SecretVerifier verifies HS256 tokens signed with a shared secret.
type SecretVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewSecretVerifier creates a verifier for tokens signed with secret.
func NewSecretVerifier(secret string, logger *slog.Logger) (JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	logger.Info("JWT verifier initialized", "mode", "secret")
	return &SecretVerifier{secret: []byte(secret), logger: logger}, nil
}

// VerifyToken accepts HS256 tokens signed with the shared secret.
func (v *SecretVerifier) VerifyToken(tokenString string) (*models.UserClaims, error) {
	keyFn := func(*jwt.Token) (interface{}, error) { return v.secret, nil }
	return verify(tokenString, keyFn, []string{"HS256"}, v.logger)
}

// Close releases nothing.
func (v *SecretVerifier) Close() error { return nil }

// IssueToken signs an HS256 token for userID, valid for ttl. Used by local
// tooling and tests; production tokens come from the identity provider.
func IssueToken(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func verify(tokenString string, keyFn jwt.Keyfunc, algs []string, logger *slog.Logger) (*models.UserClaims, error) {
	// WithValidMethods prevents algorithm confusion attacks
	token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, keyFn,
		jwt.WithValidMethods(algs),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok {
		logger.Error("failed to extract claims from token")
		return nil, domain.ErrUnauthorized
	}

	if claims.Subject == "" {
		logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}
