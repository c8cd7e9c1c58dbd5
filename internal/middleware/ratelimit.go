package middleware

import (
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/quickbite/order-api/internal/config"
)

// RateLimit returns a fixed-window limiter middleware.  Each client IP
// gets max requests per window under the given scope ("general" for all
// routes, "auth" for the stricter /auth budget); beyond that the request
// is rejected with 429 before any parsing cost is paid.  Quota headers
// are set on every response so well-behaved clients can pace themselves.
func RateLimit(cfg config.RateLimitConfig, store CounterStore, scope string, max int) echo.MiddlewareFunc {
    if !cfg.Enabled || store == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            key := cfg.Prefix + ":" + scope + ":ip:" + ip

            count, resetIn, err := store.Incr(c.Request().Context(), key, cfg.Window)
            if err != nil {
                // A broken counter store must not take the API down.
                c.Logger().Warnf("[ratelimit] counter error for key=%s: %v", key, err)
                return next(c)
            }

            remaining := int64(max) - count
            if remaining < 0 {
                remaining = 0
            }
            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if count > int64(max) {
                secs := int(math.Ceil(resetIn.Seconds()))
                if secs < 0 {
                    secs = 0
                }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "status":      "error",
                    "message":     "too many requests, please try again later",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

// SpeedLimit returns the progressive-delay middleware.  It never rejects:
// once a client exceeds cfg.SpeedAfter requests within the window, each
// further request sleeps (n - threshold) * cfg.SpeedStep, capped at
// cfg.SpeedMax, before proceeding.  Automated bursts get throttled while
// a legitimate client that trips the threshold still gets served.
func SpeedLimit(cfg config.RateLimitConfig, store CounterStore) echo.MiddlewareFunc {
    if !cfg.Enabled || store == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            key := cfg.Prefix + ":speed:ip:" + ip

            count, _, err := store.Incr(c.Request().Context(), key, cfg.Window)
            if err != nil {
                c.Logger().Warnf("[speedlimit] counter error for key=%s: %v", key, err)
                return next(c)
            }
            if delay := SpeedDelay(cfg, count); delay > 0 {
                select {
                case <-time.After(delay):
                case <-c.Request().Context().Done():
                    return c.Request().Context().Err()
                }
            }
            return next(c)
        }
    }
}

// SpeedDelay computes the injected delay for the n-th request in a
// window.
func SpeedDelay(cfg config.RateLimitConfig, n int64) time.Duration {
    over := n - int64(cfg.SpeedAfter)
    if over <= 0 {
        return 0
    }
    d := time.Duration(over) * cfg.SpeedStep
    if d > cfg.SpeedMax {
        d = cfg.SpeedMax
    }
    return d
}
