package tokens

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Verifier is the authoritative validation path: signature, issuer, audience,
// expiry, then class. Application code must branch on the sentinel errors in
// errors.go, never on the claims of a token that failed here.
type Verifier struct {
	accessSecret  []byte
	refreshSecret []byte
	logger        *zap.Logger
}

// NewVerifier builds a verifier from injected configuration. Like the issuer
// it refuses to construct without both secrets.
func NewVerifier(cfg Config, logger *zap.Logger) (*Verifier, error) {
	if cfg.AccessSecret == "" {
		return nil, errors.New("tokens: access secret is required")
	}
	if cfg.RefreshSecret == "" {
		return nil, errors.New("tokens: refresh secret is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		logger:        logger,
	}, nil
}

// VerifyAccessToken validates an access token and returns its claims.
// Fails with ErrAccessTokenExpired, ErrAccessTokenNotActive,
// ErrInvalidAccessToken, ErrInvalidTokenClass or ErrTokenVerification.
func (v *Verifier) VerifyAccessToken(token string) (*Claims, error) {
	claims, err := v.parse(token, v.accessSecret)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrAccessTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			v.logger.Warn("access token used before nbf", zap.Error(err))
			return nil, ErrAccessTokenNotActive
		case isStructuralError(err):
			v.logger.Warn("access token rejected", zap.Error(err))
			return nil, ErrInvalidAccessToken
		default:
			v.logger.Error("unexpected access token verification failure", zap.Error(err))
			return nil, ErrTokenVerification
		}
	}
	if claims.Class != ClassAccess {
		v.logger.Warn("well-signed token presented to access verifier",
			zap.String("token_class", string(claims.Class)))
		return nil, ErrInvalidTokenClass
	}
	return claims, nil
}

// VerifyRefreshToken validates a refresh token and returns its claims.
// Fails with ErrRefreshTokenExpired, ErrInvalidRefreshToken,
// ErrInvalidTokenClass or ErrTokenVerification.
func (v *Verifier) VerifyRefreshToken(token string) (*Claims, error) {
	claims, err := v.parse(token, v.refreshSecret)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrRefreshTokenExpired
		case isStructuralError(err) || errors.Is(err, jwt.ErrTokenNotValidYet):
			v.logger.Warn("refresh token rejected", zap.Error(err))
			return nil, ErrInvalidRefreshToken
		default:
			v.logger.Error("unexpected refresh token verification failure", zap.Error(err))
			return nil, ErrTokenVerification
		}
	}
	if claims.Class != ClassRefresh {
		v.logger.Warn("well-signed token presented to refresh verifier",
			zap.String("token_class", string(claims.Class)))
		return nil, ErrInvalidTokenClass
	}
	return claims, nil
}

// VerifyEmailVerificationToken validates an email verification token. Every
// failure collapses to ErrInvalidVerificationToken.
func (v *Verifier) VerifyEmailVerificationToken(token string) (*Claims, error) {
	claims, err := v.verifyOneShot(token, ClassEmailVerification)
	if err != nil {
		return nil, ErrInvalidVerificationToken
	}
	return claims, nil
}

// VerifyPasswordResetToken validates a password reset token. Every failure
// collapses to ErrInvalidResetToken.
func (v *Verifier) VerifyPasswordResetToken(token string) (*Claims, error) {
	claims, err := v.verifyOneShot(token, ClassPasswordReset)
	if err != nil {
		return nil, ErrInvalidResetToken
	}
	return claims, nil
}

// verifyOneShot shares the access keyspace but enforces the one-shot class.
// The precise cause stays in the logs; callers only see the coarse error.
func (v *Verifier) verifyOneShot(token string, class Class) (*Claims, error) {
	claims, err := v.parse(token, v.accessSecret)
	if err != nil {
		v.logger.Warn("one-shot token rejected",
			zap.String("expected_class", string(class)),
			zap.Error(err))
		return nil, err
	}
	if claims.Class != class {
		v.logger.Warn("one-shot token class mismatch",
			zap.String("expected_class", string(class)),
			zap.String("token_class", string(claims.Class)))
		return nil, ErrInvalidTokenClass
	}
	return claims, nil
}

func (v *Verifier) parse(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(IssuerName), jwt.WithAudience(AudienceName))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func isStructuralError(err error) bool {
	return errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) ||
		errors.Is(err, jwt.ErrTokenInvalidClaims)
}
