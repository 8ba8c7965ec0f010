package tokens

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Issuer mints signed, time-bounded tokens. Safe for concurrent use: all
// state is read-only after construction.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	logger        *zap.Logger
}

// NewIssuer builds an issuer from injected configuration. Both secrets are
// required; refusing to start beats silently minting unverifiable tokens.
func NewIssuer(cfg Config, logger *zap.Logger) (*Issuer, error) {
	if cfg.AccessSecret == "" {
		return nil, errors.New("tokens: access secret is required")
	}
	if cfg.RefreshSecret == "" {
		return nil, errors.New("tokens: refresh secret is required")
	}
	accessTTL := cfg.AccessTTL
	if accessTTL == 0 {
		accessTTL = DefaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		logger:        logger,
	}, nil
}

// AccessTTL reports the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// IssueAccessToken signs a short-lived access token carrying the full
// profile subset.
func (i *Issuer) IssueAccessToken(p Profile) (string, error) {
	claims := &Claims{
		Class:            ClassAccess,
		Username:         p.Username,
		Email:            p.Email,
		Role:             p.Role,
		Verified:         p.Verified,
		RegisteredClaims: registeredClaims(p.ID, i.accessTTL),
	}
	return i.sign(claims, i.accessSecret)
}

// IssueRefreshToken signs a long-lived refresh token. The payload is kept to
// subject and class only; a 30-day credential should not carry profile data.
func (i *Issuer) IssueRefreshToken(p Profile) (string, error) {
	claims := &Claims{
		Class:            ClassRefresh,
		RegisteredClaims: registeredClaims(p.ID, i.refreshTTL),
	}
	return i.sign(claims, i.refreshSecret)
}

// IssuePair mints the access/refresh pair returned by login and refresh
// flows. The caller derives the profile subset once from its user record.
func (i *Issuer) IssuePair(p Profile) (Pair, error) {
	access, err := i.IssueAccessToken(p)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefreshToken(p)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(i.accessTTL.Seconds()),
	}, nil
}

// IssueEmailVerificationToken signs a 24h single-purpose token carrying
// subject and email only.
func (i *Issuer) IssueEmailVerificationToken(p Profile) (string, error) {
	claims := &Claims{
		Class:            ClassEmailVerification,
		Email:            p.Email,
		RegisteredClaims: registeredClaims(p.ID, EmailVerificationTTL),
	}
	return i.sign(claims, i.accessSecret)
}

// IssuePasswordResetToken signs a 1h single-purpose token carrying subject
// and email only.
func (i *Issuer) IssuePasswordResetToken(p Profile) (string, error) {
	claims := &Claims{
		Class:            ClassPasswordReset,
		Email:            p.Email,
		RegisteredClaims: registeredClaims(p.ID, PasswordResetTTL),
	}
	return i.sign(claims, i.accessSecret)
}

func (i *Issuer) sign(claims *Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		i.logger.Error("token signing failed",
			zap.String("token_class", string(claims.Class)),
			zap.Error(err))
		return "", ErrTokenGeneration
	}
	return signed, nil
}

func registeredClaims(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    IssuerName,
		Audience:  jwt.ClaimStrings{AudienceName},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
