package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the identity routes on the given group (mounted at
// /api/auth).
//
// The auth rate limiters run BEFORE the handlers so repeated bad-credential
// attempts are throttled without ever reaching the identity store -- this is
// the credential-stuffing defense, and it stacks with the global limiter.
// Register and login share one counter; only successful logins refund.
func RegisterRoutes(g *echo.Group, h *Handler, registerLimiter, loginLimiter, requireAuth echo.MiddlewareFunc) {
	g.POST("/register", h.Register, registerLimiter)
	g.POST("/login", h.Login, loginLimiter)
	g.GET("/profile", h.Profile, requireAuth)
}
