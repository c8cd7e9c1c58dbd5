// Package router wires endpoints to handlers and fixes the order of the
// security middleware chain.  Ordering matters: the limiters run first so
// a flood is rejected before any parsing cost, then sanitation, then the
// injection blocklist, and only then the business handler.
package router

import (
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/quickbite/order-api/internal/config"
    "github.com/quickbite/order-api/internal/handler"
    "github.com/quickbite/order-api/internal/middleware"
    "github.com/quickbite/order-api/internal/model"
    "github.com/quickbite/order-api/internal/token"
)

// requestTimeout caps how long any single request may run before it is
// failed with a transient error instead of hanging.
const requestTimeout = 10 * time.Second

// Register sets up every route on the Echo instance.
func Register(e *echo.Echo, a *handler.AuthHandler, issuer token.Issuer,
    rlCfg config.RateLimitConfig, counters middleware.CounterStore) {

    e.Use(echomw.Recover())
    e.Use(echomw.TimeoutWithConfig(echomw.TimeoutConfig{Timeout: requestTimeout}))
    e.Use(middleware.RateLimit(rlCfg, counters, "general", rlCfg.GeneralMax))

    // Echo runs group middleware after everything registered with e.Use,
    // so sanitation and the injection guard are attached per group: that
    // keeps every limiter ahead of them, and a flood is counted and
    // rejected before any body parsing happens.
    sanitize := middleware.Sanitize()
    guard := middleware.InjectionGuard()

    e.GET("/healthz", handler.Health)

    // Auth endpoints carry the stricter limiter and the progressive delay;
    // they are the brute-force target.
    auth := e.Group("/auth",
        middleware.RateLimit(rlCfg, counters, "auth", rlCfg.AuthMax),
        middleware.SpeedLimit(rlCfg, counters),
        sanitize,
        guard,
    )
    auth.POST("/register", a.Register)
    auth.POST("/login", a.Login)
    auth.POST("/refresh-token", a.Refresh)
    auth.POST("/logout", a.Logout)
    auth.POST("/forgot-password", a.ForgotPassword)
    auth.POST("/reset-password", a.ResetPassword)

    // Protected surface: a valid bearer access token is required; the
    // role claim gates the admin endpoints.
    v1 := e.Group("/v1", sanitize, guard, middleware.JWTAuth(issuer))
    v1.GET("/me", a.Me)

    admin := v1.Group("/admin", middleware.RequireRole(model.RoleAdmin))
    admin.PATCH("/users/role", a.UpdateRole)
}
