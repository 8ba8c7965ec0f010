package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/storyswap/storyswap-api/internal/api/http/handlers"
	"github.com/storyswap/storyswap-api/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)

	authGroup.Post("/email/verify", cfg.Auth.VerifyEmail)
	authGroup.Post("/password/forgot", cfg.Auth.ForgotPassword)
	authGroup.Post("/password/reset", cfg.Auth.ResetPassword)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Post("/email/resend", cfg.Auth.ResendVerification)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	app.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
}
