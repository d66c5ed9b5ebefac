package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/apperror"
	"gatehouse/internal/config"
)

// newTestApp builds an App with no live stores. Tests register their own
// routes; the global middleware and error handler are wired as in production.
func newTestApp(env string) *App {
	return New(&config.Config{Env: env, Port: 0}, nil, nil)
}

// serve runs one request through the app's full Echo stack.
func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_AppError(t *testing.T) {
	a := newTestApp("production")
	a.Echo.GET("/boom", func(c echo.Context) error {
		return apperror.NewConflict("User with this email already exists")
	})

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Conflict", body["error"])
	assert.Equal(t, apperror.TypeConflict, body["type"])
	assert.Equal(t, "User with this email already exists", body["message"])
}

func TestErrorHandler_RateLimitedSetsRetryAfter(t *testing.T) {
	a := newTestApp("production")
	a.Echo.GET("/limited", func(c echo.Context) error {
		return apperror.NewRateLimited("Too many requests, please try again later", 90*time.Second)
	})

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/limited", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))

	body := decodeBody(t, rec)
	assert.Equal(t, apperror.TypeRateLimited, body["type"])
	assert.Equal(t, float64(90), body["retryAfter"])
}

func TestErrorHandler_InternalHidesCause(t *testing.T) {
	a := newTestApp("production")
	a.Echo.GET("/oops", func(c echo.Context) error {
		return apperror.NewInternal(errors.New("pq: connection reset by peer"))
	})

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/oops", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestErrorHandler_DevelopmentExposesDetail(t *testing.T) {
	a := newTestApp("development")
	a.Echo.GET("/oops", func(c echo.Context) error {
		return apperror.NewInternal(errors.New("pq: connection reset by peer"))
	})

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/oops", nil))

	body := decodeBody(t, rec)
	assert.Equal(t, "pq: connection reset by peer", body["detail"])
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	a := newTestApp("production")

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "The requested endpoint does not exist", body["message"])
	assert.Equal(t, "/no/such/route", body["path"])
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	a := newTestApp("production")
	a.Echo.GET("/panic", func(c echo.Context) error {
		panic("boom")
	})

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- Health Tests ---

func healthOK(ctx context.Context) error   { return nil }
func healthDown(ctx context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealth_AllDependenciesUp(t *testing.T) {
	a := newTestApp("production")
	a.Echo.GET("/health", HealthHandler(healthOK, healthOK))

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "UP", body["status"])
	assert.Equal(t, "gatehouse", body["service"])

	checks := body["checks"].(map[string]any)
	assert.Equal(t, true, checks["postgres"])
	assert.Equal(t, true, checks["redis"])
}

func TestHealth_DegradesWhenDependencyDown(t *testing.T) {
	a := newTestApp("production")
	a.Echo.GET("/health", HealthHandler(healthOK, healthDown))

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "DOWN", body["status"])

	checks := body["checks"].(map[string]any)
	assert.Equal(t, true, checks["postgres"])
	assert.Equal(t, false, checks["redis"])
}
