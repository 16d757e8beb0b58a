package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signedToken(t, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	got, err := TokenExpiry(tok)
	if err != nil {
		t.Fatalf("TokenExpiry: %v", err)
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}
}

func TestTokenExpiryNoClaim(t *testing.T) {
	tok := signedToken(t, jwt.RegisteredClaims{Subject: "alice"})

	_, err := TokenExpiry(tok)
	if !errors.Is(err, ErrNoExpiry) {
		t.Errorf("expected ErrNoExpiry, got %v", err)
	}
}

func TestTokenExpiryOpaqueToken(t *testing.T) {
	if _, err := TokenExpiry("not-a-jwt"); err == nil {
		t.Error("expected error for opaque token")
	}
}

func TestExpiresWithin(t *testing.T) {
	soon := signedToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	later := signedToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})

	if !ExpiresWithin(soon, time.Hour) {
		t.Error("expected token expiring in a minute to report true")
	}
	if ExpiresWithin(later, time.Hour) {
		t.Error("expected token expiring tomorrow to report false")
	}
	if ExpiresWithin("not-a-jwt", time.Hour) {
		t.Error("opaque tokens should report false")
	}
}

func TestSubject(t *testing.T) {
	tok := signedToken(t, jwt.RegisteredClaims{Subject: "bob"})
	if got := Subject(tok); got != "bob" {
		t.Errorf("Subject = %q, want %q", got, "bob")
	}
	if got := Subject("garbage"); got != "" {
		t.Errorf("Subject for garbage = %q, want empty", got)
	}
}
