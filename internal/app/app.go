// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (Postgres pool, Redis
// client, Echo instance) and wires together the admission pipeline.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"gatehouse/internal/apperror"
	"gatehouse/internal/config"
	"gatehouse/internal/middleware"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the PostgreSQL identity-store pool shared by all components.
	DB *pgxpool.Pool

	// Redis is the counter-store client used by the rate limiters.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. The rate limiters key on it.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Echo:   e,
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to JSON responses.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers on every response.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS for browser-based API clients.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
	}))
}

// errorHandler is the custom Echo error handler. It maps AppErrors to their
// HTTP status and JSON shape, renders router 404s with the documented
// {error, message, path} body, and hides everything else behind a generic
// 500. Stack detail never reaches the client outside development.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	path := c.Request().URL.Path

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		// Log internal causes with request context; client payload stays safe.
		if appErr.Internal != nil {
			slog.Error("request failed",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("method", c.Request().Method),
				slog.String("path", path),
			)
		}

		body := map[string]any{
			"error":   http.StatusText(appErr.Code),
			"type":    appErr.Type,
			"message": appErr.Message,
		}
		if appErr.RetryAfter > 0 {
			seconds := int64(appErr.RetryAfter.Seconds() + 0.999)
			c.Response().Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
			body["retryAfter"] = seconds
		}
		if a.Config.IsDevelopment() && appErr.Internal != nil {
			body["detail"] = appErr.Internal.Error()
		}

		c.JSON(appErr.Code, body)
		return
	}

	// Echo's built-in HTTP errors (404 from the router, 405, bad bind).
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if echoErr.Code == http.StatusNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested endpoint does not exist",
				"path":    path,
			})
			return
		}

		message := http.StatusText(echoErr.Code)
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		}
		c.JSON(echoErr.Code, map[string]string{
			"error":   http.StatusText(echoErr.Code),
			"message": message,
		})
		return
	}

	// Truly unexpected error -- log with full context, answer generically.
	slog.Error("unhandled error",
		slog.Any("error", err),
		slog.String("method", c.Request().Method),
		slog.String("path", path),
		slog.Time("timestamp", time.Now().UTC()),
	)
	c.JSON(http.StatusInternalServerError, map[string]string{
		"error":   "Internal Server Error",
		"message": "An unexpected error occurred",
	})
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting gatehouse server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
