package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/storyswap/storyswap-api/internal/domain"
	"github.com/storyswap/storyswap-api/internal/repository"
	"github.com/storyswap/storyswap-api/internal/tokens"
	apperrors "github.com/storyswap/storyswap-api/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *tokens.Claims
}

// Middleware validates bearer access tokens and loads principals.
type Middleware struct {
	verifier *tokens.Verifier
	users    repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(verifier *tokens.Verifier, users repository.UserRepository) *Middleware {
	return &Middleware{verifier: verifier, users: users}
}

// Handle enforces authentication for protected routes. Expired and invalid
// tokens get distinct error codes so clients know whether to refresh or
// re-login.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	credential, ok := tokens.BearerToken(header)
	if !ok {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.verifier.VerifyAccessToken(credential)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrAccessTokenExpired):
			return apperrors.NewDomainError("TOKEN_EXPIRED", "access token expired", fiber.StatusUnauthorized, nil)
		case errors.Is(err, tokens.ErrAccessTokenNotActive):
			return apperrors.NewDomainError("TOKEN_NOT_ACTIVE", "access token not active yet", fiber.StatusUnauthorized, nil)
		default:
			return apperrors.NewUnauthorized("invalid token")
		}
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return apperrors.NewForbidden("account suspended")
	}

	c.Locals(principalKey, &Principal{User: user, Claims: claims})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
