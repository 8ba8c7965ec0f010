package tokens

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signRaw mints arbitrary claims outside the Issuer so tests can forge
// tokens with the wrong issuer, method or expiry.
func signRaw(t *testing.T, claims *Claims, method jwt.SigningMethod, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func rawClaims(subject string, class Class, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		Class: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    IssuerName,
			Audience:  jwt.ClaimStrings{AudienceName},
			ID:        "test-jti",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestVerifyAccessTokenRejectsGarbage(t *testing.T) {
	_, verifier := newTestPair(t, testConfig())

	for _, token := range []string{"", "garbage", "a.b.c", "Bearer abc"} {
		_, err := verifier.VerifyAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidAccessToken, "token %q", token)
	}
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = -time.Minute
	issuer, err := NewIssuer(cfg, nil)
	require.NoError(t, err)
	verifier, err := NewVerifier(cfg, nil)
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken(testProfile())
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrAccessTokenExpired)
}

func TestVerifyRefreshTokenExpired(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTTL = -time.Minute
	issuer, err := NewIssuer(cfg, nil)
	require.NoError(t, err)
	verifier, err := NewVerifier(cfg, nil)
	require.NoError(t, err)

	token, err := issuer.IssueRefreshToken(testProfile())
	require.NoError(t, err)

	_, err = verifier.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestVerifyAccessTokenNotActive(t *testing.T) {
	cfg := testConfig()
	_, verifier := newTestPair(t, cfg)

	claims := rawClaims("u1", ClassAccess, time.Hour)
	claims.NotBefore = jwt.NewNumericDate(time.Now().Add(30 * time.Minute))
	token := signRaw(t, claims, jwt.SigningMethodHS256, cfg.AccessSecret)

	_, err := verifier.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrAccessTokenNotActive)
}

func TestCrossSecretRejection(t *testing.T) {
	_, verifier := newTestPair(t, testConfig())
	issuer, _ := newTestPair(t, testConfig())

	// An access token never verifies as a refresh token: the secrets differ,
	// so the signature check fails before the class is even consulted.
	access, err := issuer.IssueAccessToken(testProfile())
	require.NoError(t, err)
	_, err = verifier.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	refresh, err := issuer.IssueRefreshToken(testProfile())
	require.NoError(t, err)
	_, err = verifier.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestCrossClassRejectionSameSecret(t *testing.T) {
	issuer, verifier := newTestPair(t, testConfig())

	// Email verification tokens share the access keyspace; only the class
	// claim distinguishes them.
	verify, err := issuer.IssueEmailVerificationToken(testProfile())
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(verify)
	assert.ErrorIs(t, err, ErrInvalidTokenClass)

	_, err = verifier.VerifyPasswordResetToken(verify)
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	reset, err := issuer.IssuePasswordResetToken(testProfile())
	require.NoError(t, err)
	_, err = verifier.VerifyEmailVerificationToken(reset)
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)
}

func TestVerifyRejectsWrongIssuerAndAudience(t *testing.T) {
	cfg := testConfig()
	_, verifier := newTestPair(t, cfg)

	wrongIssuer := rawClaims("u1", ClassAccess, time.Hour)
	wrongIssuer.RegisteredClaims.Issuer = "someone-else"
	token := signRaw(t, wrongIssuer, jwt.SigningMethodHS256, cfg.AccessSecret)
	_, err := verifier.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	wrongAudience := rawClaims("u1", ClassAccess, time.Hour)
	wrongAudience.RegisteredClaims.Audience = jwt.ClaimStrings{"other-app"}
	token = signRaw(t, wrongAudience, jwt.SigningMethodHS256, cfg.AccessSecret)
	_, err = verifier.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestVerifyRejectsUnexpectedSigningMethod(t *testing.T) {
	cfg := testConfig()
	_, verifier := newTestPair(t, cfg)

	token := signRaw(t, rawClaims("u1", ClassAccess, time.Hour), jwt.SigningMethodHS512, cfg.AccessSecret)
	_, err := verifier.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuer, verifier := newTestPair(t, testConfig())

	token, err := issuer.IssueAccessToken(testProfile())
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = verifier.VerifyAccessToken(tampered)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestOneShotFailuresCollapse(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = -time.Minute
	_, verifier := newTestPair(t, cfg)

	// Expired, malformed and wrong-class tokens all yield the same coarse
	// error for one-shot flows.
	expired := signRaw(t, rawClaims("u1", ClassEmailVerification, -time.Minute), jwt.SigningMethodHS256, cfg.AccessSecret)
	_, err := verifier.VerifyEmailVerificationToken(expired)
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)

	_, err = verifier.VerifyEmailVerificationToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)

	_, err = verifier.VerifyPasswordResetToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestNewVerifierRequiresSecrets(t *testing.T) {
	_, err := NewVerifier(Config{AccessSecret: "a"}, nil)
	assert.Error(t, err)

	_, err = NewVerifier(Config{RefreshSecret: "r"}, nil)
	assert.Error(t, err)
}
