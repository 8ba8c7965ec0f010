package tokens

import "errors"

// Token failure taxonomy. Every issue/verify failure maps to exactly one of
// these before it reaches a caller; raw jwt library errors never escape the
// package. All are terminal at the token level: the caller must obtain a new
// token or re-authenticate.
var (
	// ErrTokenGeneration means the signing primitive failed. Treated as a
	// server fault; the underlying cause is logged, not surfaced.
	ErrTokenGeneration = errors.New("token generation failed")

	ErrAccessTokenExpired  = errors.New("access token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Signature or structural failures. Logged distinctly from expiry since
	// they can indicate tampering rather than normal churn.
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrAccessTokenNotActive covers nbf violations, usually clock skew.
	ErrAccessTokenNotActive = errors.New("access token not active yet")

	// ErrInvalidTokenClass: the signature checked out but the token was
	// minted for a different purpose. Which class was expected stays in the
	// server logs only.
	ErrInvalidTokenClass = errors.New("unexpected token class")

	// Coarse failures for the one-shot flows. Deliberately collapsed so the
	// endpoint cannot be used as an oracle for expiry vs. tampering.
	ErrInvalidVerificationToken = errors.New("invalid email verification token")
	ErrInvalidResetToken        = errors.New("invalid password reset token")

	// ErrTokenVerification is the catch-all for unexpected verifier
	// failures; always logged with full cause server-side.
	ErrTokenVerification = errors.New("token verification failed")
)
