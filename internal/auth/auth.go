package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The dashboard is a pure client: it never validates token signatures, the
// server does that. It only inspects claims so it can warn before a session
// expires instead of failing mid-stream.

var ErrNoExpiry = errors.New("token has no expiry claim")

// TokenExpiry returns the expiry time of a JWT without verifying its
// signature. Opaque (non-JWT) tokens return an error.
func TokenExpiry(tokenStr string) (time.Time, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenStr, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether the token expires within d. Tokens that
// cannot be parsed or carry no expiry report false; the server remains the
// authority on whether they work.
func ExpiresWithin(tokenStr string, d time.Duration) bool {
	exp, err := TokenExpiry(tokenStr)
	if err != nil {
		return false
	}
	return time.Until(exp) < d
}

// Subject returns the subject claim, or "" if the token has none or is not
// a JWT. Used for display only.
func Subject(tokenStr string) string {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenStr, &jwt.RegisteredClaims{})
	if err != nil {
		return ""
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return ""
	}
	return claims.Subject
}
