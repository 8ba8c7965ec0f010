package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
	}
}

func testProfile() Profile {
	return Profile{
		ID:       "u1",
		Username: "bob",
		Email:    "b@x.com",
		Role:     "user",
		Verified: true,
	}
}

func newTestPair(t *testing.T, cfg Config) (*Issuer, *Verifier) {
	t.Helper()
	issuer, err := NewIssuer(cfg, nil)
	require.NoError(t, err)
	verifier, err := NewVerifier(cfg, nil)
	require.NoError(t, err)
	return issuer, verifier
}

func TestNewIssuerRequiresSecrets(t *testing.T) {
	_, err := NewIssuer(Config{RefreshSecret: "r"}, nil)
	assert.Error(t, err)

	_, err = NewIssuer(Config{AccessSecret: "a"}, nil)
	assert.Error(t, err)

	_, err = NewIssuer(Config{AccessSecret: "a", RefreshSecret: "r"}, nil)
	assert.NoError(t, err)
}

func TestNewIssuerDefaultsTTLs(t *testing.T) {
	issuer, err := NewIssuer(Config{AccessSecret: "a", RefreshSecret: "r"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAccessTTL, issuer.AccessTTL())
}

func TestIssueAccessTokenRoundTrip(t *testing.T) {
	issuer, verifier := newTestPair(t, testConfig())

	token, err := issuer.IssueAccessToken(testProfile())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := verifier.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, ClassAccess, claims.Class)
	assert.Equal(t, "bob", claims.Username)
	assert.Equal(t, "b@x.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.True(t, claims.Verified)
	assert.Equal(t, IssuerName, claims.Issuer)
	assert.Contains(t, claims.Audience, AudienceName)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueRefreshTokenMinimalPayload(t *testing.T) {
	issuer, verifier := newTestPair(t, testConfig())

	token, err := issuer.IssueRefreshToken(testProfile())
	require.NoError(t, err)

	claims, err := verifier.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, ClassRefresh, claims.Class)
	assert.Empty(t, claims.Username)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.Role)
	assert.False(t, claims.Verified)
}

func TestIssuePair(t *testing.T) {
	cfg := testConfig()
	issuer, verifier := newTestPair(t, cfg)

	pair, err := issuer.IssuePair(testProfile())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(cfg.AccessTTL.Seconds()), pair.ExpiresIn)

	accessClaims, err := verifier.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", accessClaims.Subject)

	refreshClaims, err := verifier.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", refreshClaims.Subject)
}

func TestIssueOneShotTokens(t *testing.T) {
	issuer, verifier := newTestPair(t, testConfig())

	verify, err := issuer.IssueEmailVerificationToken(testProfile())
	require.NoError(t, err)
	claims, err := verifier.VerifyEmailVerificationToken(verify)
	require.NoError(t, err)
	assert.Equal(t, ClassEmailVerification, claims.Class)
	assert.Equal(t, "b@x.com", claims.Email)
	assert.Empty(t, claims.Username)

	reset, err := issuer.IssuePasswordResetToken(testProfile())
	require.NoError(t, err)
	claims, err = verifier.VerifyPasswordResetToken(reset)
	require.NoError(t, err)
	assert.Equal(t, ClassPasswordReset, claims.Class)
	assert.Equal(t, "b@x.com", claims.Email)
}

func TestUniqueIDDiffersPerToken(t *testing.T) {
	issuer, _ := newTestPair(t, testConfig())

	first, err := issuer.IssueAccessToken(testProfile())
	require.NoError(t, err)
	second, err := issuer.IssueAccessToken(testProfile())
	require.NoError(t, err)

	a := Decode(first)
	b := Decode(second)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, a.ID, b.ID)
}
