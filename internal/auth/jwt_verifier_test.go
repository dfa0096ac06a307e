package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
)

const testSecret = "test-secret-with-enough-entropy"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSecretVerifierAcceptsIssuedToken(t *testing.T) {
	v, err := NewSecretVerifier(testSecret, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	token, err := IssueToken(testSecret, "user-1", "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := v.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.GetUserID() != "user-1" || claims.Email != "a@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestSecretVerifierRejects(t *testing.T) {
	v, _ := NewSecretVerifier(testSecret, testLogger())

	expired, _ := IssueToken(testSecret, "user-1", "", -time.Minute)
	wrongKey, _ := IssueToken("another-secret", "user-1", "", time.Hour)
	noSubject, _ := IssueToken(testSecret, "", "", time.Hour)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	noExpiryToken, _ := noExpiry.SignedString([]byte(testSecret))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noneToken, _ := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"no expiry":  noExpiryToken,
		"alg none":   noneToken,
		"garbage":    "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.VerifyToken(token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("VerifyToken = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestNewVerifiersRequireConfiguration(t *testing.T) {
	if _, err := NewSecretVerifier("", testLogger()); err == nil {
		t.Error("empty secret accepted")
	}
	if _, err := NewJWKSVerifier("", testLogger()); err == nil {
		t.Error("empty JWKS URL accepted")
	}
}
