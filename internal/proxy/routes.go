package proxy

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the analyzer routes on the given group (mounted at
// /api/analyzer). All routes require a bearer token.
//
// On the upload route the upload limiter runs before authentication, so an
// abusive client burns its quota without costing an identity-store lookup;
// both stack with the global limiter.
func RegisterRoutes(g *echo.Group, h *Handler, uploadLimiter, requireAuth echo.MiddlewareFunc) {
	g.POST("/upload", h.Upload, uploadLimiter, requireAuth)
	g.GET("/tasks", h.ListTasks, requireAuth)
	g.GET("/tasks/:taskId", h.GetTask, requireAuth)
	g.GET("/similarity/search/:taskId", h.SimilaritySearch, requireAuth)
	g.POST("/similarity/compare", h.SimilarityCompare, requireAuth)
}
