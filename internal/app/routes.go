package app

import (
	"context"

	"gatehouse/internal/auth"
	"gatehouse/internal/proxy"
	"gatehouse/internal/ratelimit"
	"gatehouse/internal/token"
)

// RegisterRoutes builds the admission pipeline and mounts every route.
//
// This is the single place where stage order is decided. Global middleware
// (recovery, logging, headers, CORS) is already installed by New; here each
// route gets, in order: the general limiter (all routes), a route-specific
// limiter where one applies, then authentication where the route requires
// identity, then the handler. Limiters run before authentication so invalid
// credential floods are throttled without an identity-store lookup.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// --- Admission components ---

	codec := token.NewCodec(a.Config.Auth.JWTSecret, a.Config.Auth.TokenTTL)

	repo := auth.NewUserRepository(a.DB)
	identity := auth.NewService(repo, codec)
	requireAuth := auth.RequireAuth(identity)

	counters := ratelimit.NewRedisStore(a.Redis)
	generalLimiter := ratelimit.Middleware(ratelimit.New(counters, ratelimit.GeneralPolicy()))
	uploadLimiter := ratelimit.Middleware(ratelimit.New(counters, ratelimit.UploadPolicy()))

	// Register and login share the auth counter, but only a successful login
	// refunds its slot; a successful registration still consumes one.
	loginPolicy := ratelimit.AuthPolicy()
	registerPolicy := loginPolicy
	registerPolicy.SkipOnSuccess = false
	loginLimiter := ratelimit.Middleware(ratelimit.New(counters, loginPolicy))
	registerLimiter := ratelimit.Middleware(ratelimit.New(counters, registerPolicy))

	// The general limiter covers every route, including health and 404s.
	e.Use(generalLimiter)

	// --- Public routes ---

	e.GET("/health", HealthHandler(
		func(ctx context.Context) error { return a.DB.Ping(ctx) },
		func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() },
	))

	// --- Identity routes ---

	authHandler := auth.NewHandler(identity)
	auth.RegisterRoutes(e.Group("/api/auth"), authHandler, registerLimiter, loginLimiter, requireAuth)

	// --- Analyzer proxy routes ---

	forwarder := proxy.NewForwarder(a.Config.Downstream.AnalyzerURL, a.Config.Upload.MaxSize)
	proxyHandler := proxy.NewHandler(forwarder)
	proxy.RegisterRoutes(e.Group("/api/analyzer"), proxyHandler, uploadLimiter, requireAuth)
}
