package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/handler"
	"github.com/iliyamo/movie-store/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  Token-issuing
// operations live under /v1/auth without middleware; /v1/me and logout are
// protected.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	// Activation is reachable by GET so the mailed link works in a browser.
	g.GET("/activate", a.Activate)
	g.POST("/activate", a.Activate)
	g.POST("/resend-activation", a.ResendActivation)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)

	// Logout accepts either a refresh token in the body or, when called
	// with only an access token, revokes every session of the caller.
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterWebhook mounts the payment provider callback.  The route is
// deliberately outside every auth group; the handler verifies the HMAC
// signature itself.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/payments/webhook", w.Handle)
}
