package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// healthTimeout bounds each dependency probe so a hung store cannot stall
// the health endpoint past the orchestrator's own check timeout.
const healthTimeout = 2 * time.Second

// DependencyCheck probes one external dependency for liveness.
type DependencyCheck func(ctx context.Context) error

// HealthHandler reports per-dependency reachability. The endpoint answers
// 200 only when both the identity store and the counter store respond; any
// failing dependency degrades the whole response to 503.
func HealthHandler(checkPostgres, checkRedis DependencyCheck) echo.HandlerFunc {
	probe := func(ctx context.Context, name string, check DependencyCheck) bool {
		ctx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()

		if err := check(ctx); err != nil {
			slog.Warn("health check failed",
				slog.String("dependency", name),
				slog.Any("error", err),
			)
			return false
		}
		return true
	}

	return func(c echo.Context) error {
		ctx := c.Request().Context()

		checks := map[string]bool{
			"postgres": probe(ctx, "postgres", checkPostgres),
			"redis":    probe(ctx, "redis", checkRedis),
		}

		status := "UP"
		code := http.StatusOK
		for _, ok := range checks {
			if !ok {
				status = "DOWN"
				code = http.StatusServiceUnavailable
			}
		}

		return c.JSON(code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "gatehouse",
			"checks":    checks,
		})
	}
}
