package tokens

import (
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Non-authoritative introspection helpers. Nothing in this file checks a
// signature: the results are fine for display, client-side expiry countdowns
// and log enrichment, and must never feed an authorization decision. The
// authoritative path is Verifier.

// Decode parses a token without verifying it. Returns nil on any parse
// failure; it never returns an error.
func Decode(token string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

// IsExpired reports whether the token's exp claim has passed. Malformed
// tokens and tokens without an exp claim count as expired.
func IsExpired(token string) bool {
	exp, ok := Expiration(token)
	if !ok {
		return true
	}
	return time.Now().After(exp)
}

// Expiration returns the token's expiry time, if it decodes and carries one.
func Expiration(token string) (time.Time, bool) {
	claims := Decode(token)
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TimeUntilExpiration returns the signed duration until the token expires;
// negative once it already has.
func TimeUntilExpiration(token string) (time.Duration, bool) {
	exp, ok := Expiration(token)
	if !ok {
		return 0, false
	}
	return time.Until(exp), true
}

// BearerToken extracts the credential from an Authorization header. Strict:
// the header must be exactly two space-separated parts with a Bearer scheme.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
