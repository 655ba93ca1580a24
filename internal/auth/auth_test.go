package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func setSecret(t *testing.T) {
	t.Helper()
	t.Setenv(secretEnvVariable, "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestTokenRoundtrip(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("user-1", "prov-1", []string{"provider_admin", "SPECIALIST", "SPECIALIST"}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %s, want user-1", claims.Subject)
	}
	if claims.ProviderID != "prov-1" {
		t.Fatalf("provider = %s, want prov-1", claims.ProviderID)
	}
	// Roles come back uppercased and deduplicated.
	if len(claims.Roles) != 2 || claims.Roles[0] != "PROVIDER_ADMIN" || claims.Roles[1] != "SPECIALIST" {
		t.Fatalf("roles = %v, want [PROVIDER_ADMIN SPECIALIST]", claims.Roles)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	setSecret(t)

	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want invalid token", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	setSecret(t)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseAndValidate(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("ParseAndValidate(%q) = %v, want invalid token", raw, err)
		}
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	setSecret(t)
	token, err := GenerateToken("user-1", "prov-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Setenv(secretEnvVariable, "a-different-secret")
	ResetSecretForTests()
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want invalid token under rotated secret", err)
	}
}

func TestGenerateRequiresSecret(t *testing.T) {
	t.Setenv(secretEnvVariable, "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("user-1", "prov-1", nil, time.Hour); err == nil {
		t.Fatal("expected error without configured secret")
	}
}

func TestPasswordPolicy(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected policy rejection for short password")
	}

	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "wrong password!") {
		t.Fatal("wrong password accepted")
	}
}
