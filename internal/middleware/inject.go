package middleware

import (
    "encoding/json"
    "net/http"
    "regexp"

    "github.com/labstack/echo/v4"
)

// injectionPatterns is the fixed blocklist matched against every string
// field.  This is a defense-in-depth heuristic layered on top of the
// parameterized queries in the repository layer, never the primary
// protection, and it will false-positive on legitimate prose containing
// an SQL keyword; that trade-off is accepted for this API's inputs.
var injectionPatterns = []*regexp.Regexp{
    regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|union|alter|create|truncate|exec)\b`),
    regexp.MustCompile(`(;|--|/\*|\*/)`),
    regexp.MustCompile(`(?i)(\$where|\$ne|\$gt|\$lt|\$regex|\$or)`),
}

// credentialFields are typed token inputs exempt from the blocklist.
// Signed tokens are base64url, where "--" occurs legally, so the
// heuristic would reject a fraction of the system's own credentials.
// These fields are validated cryptographically instead.
var credentialFields = map[string]bool{
    "refreshToken": true,
    "token":        true,
}

// SuspiciousInput reports whether s matches the injection blocklist.
func SuspiciousInput(s string) bool {
    for _, re := range injectionPatterns {
        if re.MatchString(s) {
            return true
        }
    }
    return false
}

// suspectValue walks a decoded JSON value looking for a blocklist match.
// key is the nearest enclosing object key; credential fields are skipped.
func suspectValue(key string, v any) bool {
    switch t := v.(type) {
    case string:
        return !credentialFields[key] && SuspiciousInput(t)
    case map[string]any:
        for k, val := range t {
            if suspectValue(k, val) {
                return true
            }
        }
    case []any:
        for _, val := range t {
            if suspectValue(key, val) {
                return true
            }
        }
    }
    return false
}

// InjectionGuard returns the pattern-rejection middleware.  Any string
// field in the body or query that matches the blocklist rejects the
// whole request with a generic message before it can reach a handler or
// the store; credential fields are exempt.  It runs after Sanitize so it
// inspects the scrubbed values.
func InjectionGuard() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            r := c.Request()

            for _, vals := range r.URL.Query() {
                for _, v := range vals {
                    if SuspiciousInput(v) {
                        return rejectSuspicious(c)
                    }
                }
            }

            if hasJSONBody(r) {
                body, err := readBody(r)
                if err != nil {
                    return c.JSON(http.StatusBadRequest, echo.Map{
                        "status": "error", "message": "request body too large",
                    })
                }
                restoreBody(r, body)
                if len(body) > 0 {
                    var v any
                    if err := json.Unmarshal(body, &v); err == nil && suspectValue("", v) {
                        return rejectSuspicious(c)
                    }
                }
            }
            return next(c)
        }
    }
}

func rejectSuspicious(c echo.Context) error {
    return c.JSON(http.StatusBadRequest, echo.Map{
        "status":  "error",
        "message": "invalid input",
    })
}
