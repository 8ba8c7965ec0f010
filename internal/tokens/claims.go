package tokens

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Fixed token scoping constants asserted by the issuer and enforced by the
// verifier. Tokens minted for another issuer/audience never validate here.
const (
	IssuerName   = "storyswap-api"
	AudienceName = "storyswap-app"
)

// TTLs for the one-shot token classes. Deliberately not configurable.
const (
	EmailVerificationTTL = 24 * time.Hour
	PasswordResetTTL     = time.Hour
)

// Class is the purpose tag embedded in every token. A verifier only accepts
// tokens of the class it was asked to check, regardless of signature validity.
type Class string

const (
	ClassAccess            Class = "access"
	ClassRefresh           Class = "refresh"
	ClassEmailVerification Class = "email_verification"
	ClassPasswordReset     Class = "password_reset"
)

// Claims is the signed payload of every StorySwap token.
type Claims struct {
	Class    Class  `json:"token_class"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Verified bool   `json:"verified,omitempty"`
	jwt.RegisteredClaims
}

// Profile is the caller-supplied subset of a user record that may end up in
// claims. Only ID is required; empty optional fields are omitted from the
// signed payload.
type Profile struct {
	ID       string
	Username string
	Email    string
	Role     string
	Verified bool
}

// Pair bundles the two credentials returned by login/refresh flows.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Config carries the secrets and configurable lifetimes for the token
// service. It is built once at startup and injected; the package never reads
// the environment itself.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Defaults applied when a TTL is left zero.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)
