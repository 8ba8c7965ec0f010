package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyswap/storyswap-api/internal/domain"
	"github.com/storyswap/storyswap-api/internal/tokens"
	apperrors "github.com/storyswap/storyswap-api/pkg/util"
)

type stubUserRepo struct {
	users   map[string]*domain.User
	lastCtx context.Context
}

func (r *stubUserRepo) Create(_ context.Context, _ *domain.User) error { return nil }
func (r *stubUserRepo) Update(_ context.Context, _ *domain.User) error { return nil }

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.lastCtx = ctx
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) GetByUsername(_ context.Context, _ string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) MarkEmailVerified(_ context.Context, _ string) error { return nil }

func testTokenConfig() tokens.Config {
	return tokens.Config{
		AccessSecret:  "mw-access-secret",
		RefreshSecret: "mw-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
}

func newTestApp(t *testing.T, repo *stubUserRepo) (*fiber.App, *tokens.Issuer) {
	t.Helper()
	cfg := testTokenConfig()
	issuer, err := tokens.NewIssuer(cfg, nil)
	require.NoError(t, err)
	verifier, err := tokens.NewVerifier(cfg, nil)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code}})
		},
	})

	m := NewMiddleware(verifier, repo)
	app.Get("/protected", m.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"user_id": principal.User.ID})
	})
	return app, issuer
}

func activeUser(id string) *domain.User {
	return &domain.User{
		ID:            id,
		Username:      "bob",
		Email:         "b@x.com",
		Role:          domain.RoleUser,
		EmailVerified: true,
		Status:        domain.UserStatusActive,
	}
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{"u1": activeUser("u1")}}
	app, issuer := newTestApp(t, repo)

	token, err := issuer.IssueAccessToken(tokens.Profile{ID: "u1", Username: "bob"})
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsMissingOrMalformedHeader(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{}}
	app, _ := newTestApp(t, repo)

	for _, header := range []string{"", "abc123", "Basic abc123", "Bearer a b"} {
		resp := doRequest(t, app, header)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestMiddlewareRejectsRefreshTokenAsAccess(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{"u1": activeUser("u1")}}
	app, issuer := newTestApp(t, repo)

	refresh, err := issuer.IssueRefreshToken(tokens.Profile{ID: "u1"})
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsUnknownUser(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{}}
	app, issuer := newTestApp(t, repo)

	token, err := issuer.IssueAccessToken(tokens.Profile{ID: "ghost"})
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewarePropagatesRequestContext(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*domain.User{"u1": activeUser("u1")}}
	cfg := testTokenConfig()
	issuer, err := tokens.NewIssuer(cfg, nil)
	require.NoError(t, err)
	verifier, err := tokens.NewVerifier(cfg, nil)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Minute)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})
	m := NewMiddleware(verifier, repo)
	app.Get("/protected", m.Handle, func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	token, err := issuer.IssueAccessToken(tokens.Profile{ID: "u1"})
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, repo.lastCtx)
	_, hasDeadline := repo.lastCtx.Deadline()
	assert.True(t, hasDeadline, "user lookup should run under the request deadline")
}

func TestMiddlewareRejectsSuspendedUser(t *testing.T) {
	suspended := activeUser("u1")
	suspended.Status = domain.UserStatusSuspended
	repo := &stubUserRepo{users: map[string]*domain.User{"u1": suspended}}
	app, issuer := newTestApp(t, repo)

	token, err := issuer.IssueAccessToken(tokens.Profile{ID: "u1"})
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
