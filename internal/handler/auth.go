package handler

import (
    "context"
    "errors"
    "net/http"
    "regexp"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/quickbite/order-api/internal/service"
    "github.com/quickbite/order-api/internal/session"
)

// sessionCookie is the name of the server-side session mirror cookie.
const sessionCookie = "qb_session"

// dbTimeout bounds every storage round trip made from a handler.
const dbTimeout = 5 * time.Second

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthHandler exposes the authentication endpoints.  All orchestration
// lives in the service; handlers bind and validate the typed request,
// translate service errors onto the envelope, and manage the session
// cookie.
type AuthHandler struct {
    Svc        *service.Auth
    RefreshTTL time.Duration
}

func NewAuthHandler(svc *service.Auth, refreshTTL time.Duration) *AuthHandler {
    return &AuthHandler{Svc: svc, RefreshTTL: refreshTTL}
}

// ----- DTOs -----

type registerReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    Username string `json:"username"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refreshToken"`
}
type forgotReq struct {
    Email string `json:"email"`
}
type resetReq struct {
    Token       string `json:"token"`
    NewPassword string `json:"newPassword"`
}
type roleReq struct {
    Email string `json:"email"`
    Role  string `json:"role"`
}

type userPart struct {
    ID       uint64 `json:"id"`
    Email    string `json:"email"`
    Username string `json:"username"`
    Role     string `json:"role,omitempty"`
}
type authData struct {
    User         userPart `json:"user"`
    Token        string   `json:"token"`
    RefreshToken string   `json:"refreshToken"`
}
type pairData struct {
    Token        string `json:"token"`
    RefreshToken string `json:"refreshToken"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.Username = strings.TrimSpace(req.Username)
    if req.Email == "" || req.Password == "" || req.Username == "" {
        return fail(c, http.StatusBadRequest, "email, password and username are required")
    }
    if !emailRe.MatchString(req.Email) {
        return fail(c, http.StatusBadRequest, "invalid email address")
    }
    if len(req.Password) < 8 {
        return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    res, err := h.Svc.Register(ctx, req.Email, req.Password, req.Username)
    if err != nil {
        if errors.Is(err, service.ErrEmailExists) {
            return fail(c, http.StatusBadRequest, "email already exists")
        }
        c.Logger().Errorf("register failed: %v", err)
        return fail(c, http.StatusInternalServerError, "registration failed")
    }
    h.setSessionCookie(c, res.Session)

    return success(c, http.StatusCreated, "account created", authData{
        User:         userPart{ID: res.User.ID, Email: res.User.Email, Username: res.User.Username},
        Token:        res.AccessToken,
        RefreshToken: res.RefreshToken,
    })
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return fail(c, http.StatusBadRequest, "email and password are required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    res, err := h.Svc.Login(ctx, req.Email, req.Password)
    if err != nil {
        if errors.Is(err, service.ErrInvalidCredentials) {
            return fail(c, http.StatusUnauthorized, "invalid credentials")
        }
        c.Logger().Errorf("login failed: %v", err)
        return fail(c, http.StatusInternalServerError, "login failed")
    }
    h.setSessionCookie(c, res.Session)

    return success(c, http.StatusOK, "logged in", authData{
        User: userPart{
            ID:       res.User.ID,
            Email:    res.User.Email,
            Username: res.User.Username,
            Role:     res.User.Role,
        },
        Token:        res.AccessToken,
        RefreshToken: res.RefreshToken,
    })
}

// Refresh handles POST /auth/refresh-token.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refreshToken is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    res, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken), h.sessionID(c))
    if err != nil {
        switch {
        case errors.Is(err, service.ErrInvalidRefresh):
            return fail(c, http.StatusUnauthorized, "invalid refresh token")
        case errors.Is(err, service.ErrUserNotFound):
            return fail(c, http.StatusUnauthorized, "user not found")
        }
        c.Logger().Errorf("refresh failed: %v", err)
        return fail(c, http.StatusInternalServerError, "token refresh failed")
    }

    return success(c, http.StatusOK, "token refreshed", pairData{
        Token:        res.AccessToken,
        RefreshToken: res.RefreshToken,
    })
}

// Logout handles POST /auth/logout.  It always reports success: revoking
// an already-absent token and destroying an already-dead session are both
// fine.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req) // body is optional

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    h.Svc.Logout(ctx, strings.TrimSpace(req.RefreshToken), h.sessionID(c))
    h.clearSessionCookie(c)

    return success(c, http.StatusOK, "logged out", nil)
}

// ForgotPassword handles POST /auth/forgot-password.  The response is
// identical whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
    var req forgotReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
        return fail(c, http.StatusBadRequest, "email is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    if err := h.Svc.ForgotPassword(ctx, strings.TrimSpace(req.Email)); err != nil {
        c.Logger().Errorf("forgot-password failed: %v", err)
        return fail(c, http.StatusInternalServerError, "could not process request")
    }
    return success(c, http.StatusOK, "if an account exists for that email, a reset link has been sent", nil)
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
    var req resetReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    if strings.TrimSpace(req.Token) == "" {
        return fail(c, http.StatusBadRequest, "token is required")
    }
    if len(req.NewPassword) < 8 {
        return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    if err := h.Svc.ResetPassword(ctx, strings.TrimSpace(req.Token), req.NewPassword); err != nil {
        if errors.Is(err, service.ErrInvalidReset) {
            return fail(c, http.StatusBadRequest, "invalid or expired reset token")
        }
        c.Logger().Errorf("reset-password failed: %v", err)
        return fail(c, http.StatusInternalServerError, "could not reset password")
    }
    return success(c, http.StatusOK, "password updated, please log in again", nil)
}

// Me handles GET /v1/me, a protected endpoint echoing the verified
// identity from the access token.
func (h *AuthHandler) Me(c echo.Context) error {
    return success(c, http.StatusOK, "ok", echo.Map{
        "user_id": c.Get("user_id"),
        "role":    c.Get("role"),
    })
}

// UpdateRole handles PATCH /v1/admin/users/role (admin only).
func (h *AuthHandler) UpdateRole(c echo.Context) error {
    var req roleReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.Role = strings.ToLower(strings.TrimSpace(req.Role))
    if req.Email == "" || req.Role == "" {
        return fail(c, http.StatusBadRequest, "email and role are required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    if err := h.Svc.UpdateUserRole(ctx, req.Email, req.Role); err != nil {
        switch {
        case errors.Is(err, service.ErrUserNotFound):
            return fail(c, http.StatusNotFound, "user not found")
        case errors.Is(err, service.ErrInvalidCredentials):
            return fail(c, http.StatusBadRequest, "unknown role")
        }
        c.Logger().Errorf("role update failed: %v", err)
        return fail(c, http.StatusInternalServerError, "could not update role")
    }
    return success(c, http.StatusOK, "role updated", nil)
}

// ----- session cookie plumbing -----

func (h *AuthHandler) sessionID(c echo.Context) string {
    ck, err := c.Cookie(sessionCookie)
    if err != nil || ck == nil {
        return ""
    }
    return ck.Value
}

func (h *AuthHandler) setSessionCookie(c echo.Context, sess session.Session) {
    if sess.ID == "" {
        return
    }
    c.SetCookie(&http.Cookie{
        Name:     sessionCookie,
        Value:    sess.ID,
        Path:     "/",
        MaxAge:   int(h.RefreshTTL / time.Second),
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
    })
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
    c.SetCookie(&http.Cookie{
        Name:     sessionCookie,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
    })
}
