package middleware // middleware contains reusable HTTP request guards

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/quickbite/order-api/internal/token"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the verified user id and role into the request context.
// Protected handlers read them back via c.Get("user_id") / c.Get("role").
// Verification is stateless: signature plus expiry, no storage lookup.
// A 401 from here tells the client to try the refresh endpoint and, if
// that also fails, to discard stored credentials and re-authenticate.
func JWTAuth(issuer token.Issuer) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "status": "error", "message": "missing bearer token",
                })
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := issuer.VerifyAccess(raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "status": "error", "message": "invalid or expired token",
                })
            }
            c.Set("user_id", claims.UserID)
            c.Set("role", claims.Role)
            return next(c)
        }
    }
}
