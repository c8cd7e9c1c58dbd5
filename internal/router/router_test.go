package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quickbite/order-api/internal/config"
	"github.com/quickbite/order-api/internal/handler"
	"github.com/quickbite/order-api/internal/middleware"
	"github.com/quickbite/order-api/internal/model"
	"github.com/quickbite/order-api/internal/repository"
	"github.com/quickbite/order-api/internal/service"
	"github.com/quickbite/order-api/internal/session"
	"github.com/quickbite/order-api/internal/token"
)

// ----- in-memory stores backing the wired app -----

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func (f *fakeUsers) Create(_ context.Context, email, hash, username, role string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	f.nextID++
	f.byID[f.nextID] = model.User{ID: f.nextID, Email: email, Username: username, PasswordHash: hash, Role: role}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, email, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.byID {
		if u.Email == email {
			u.Role = role
			f.byID[id] = u
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, userID uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[userID] = u
	return nil
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[uint64]struct {
		hash string
		exp  time.Time
	}
}

func (f *fakeTokens) UpsertRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[userID] = struct {
		hash string
		exp  time.Time
	}{hash, exp}
	return nil
}

func (f *fakeTokens) FindRefresh(_ context.Context, userID uint64, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	return ok && row.hash == hash && time.Now().Before(row.exp), nil
}

func (f *fakeTokens) DeleteByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, row := range f.rows {
		if row.hash == hash {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeTokens) DeleteForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, userID)
	return nil
}

type fakeResets struct {
	mu   sync.Mutex
	rows map[string]uint64
}

func (f *fakeResets) Create(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[hash] = userID
	return nil
}

func (f *fakeResets) Consume(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.rows[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	delete(f.rows, hash)
	return uid, nil
}

// newTestApp wires the whole HTTP surface against in-memory stores.
func newTestApp(authMax int) *echo.Echo {
	iss := token.Issuer{
		AccessSecret:  "itest-access-secret",
		RefreshSecret: "itest-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}
	svc := service.NewAuth(
		&fakeUsers{byID: map[uint64]model.User{}},
		&fakeTokens{rows: map[uint64]struct {
			hash string
			exp  time.Time
		}{}},
		&fakeResets{rows: map[string]uint64{}},
		session.NewMemoryStore(),
		iss, 4, 30*time.Minute, nil,
	)
	cfg := config.RateLimitConfig{
		Enabled:    true,
		Window:     15 * time.Minute,
		GeneralMax: 1000,
		AuthMax:    authMax,
		SpeedAfter: 1000, // keep the delay ramp out of the way in tests
		SpeedStep:  time.Millisecond,
		SpeedMax:   time.Millisecond,
		Prefix:     "rl",
	}
	e := echo.New()
	Register(e, handler.NewAuthHandler(svc, iss.RefreshTTL), iss, cfg, middleware.NewMemoryCounter())
	return e
}

func doJSON(e *echo.Echo, method, path, body, bearer string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type env struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) env {
	t.Helper()
	var v env
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad envelope %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRegisterLoginRefreshLogoutFlow(t *testing.T) {
	e := newTestApp(1000)

	// Register.
	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"Sw0rd!234","username":"alice"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	reg := decode(t, rec)
	if reg.Status != "success" {
		t.Fatalf("register envelope: %+v", reg)
	}
	tok, _ := reg.Data["token"].(string)
	rt, _ := reg.Data["refreshToken"].(string)
	if tok == "" || rt == "" {
		t.Fatal("register returned empty tokens")
	}
	user, _ := reg.Data["user"].(map[string]any)
	if user["email"] != "alice@example.com" || user["username"] != "alice" {
		t.Fatalf("register user payload: %v", user)
	}

	// Duplicate register.
	rec = doJSON(e, http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"Sw0rd!234","username":"alice"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}

	// Login returns the stored role.
	rec = doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"Sw0rd!234"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	login := decode(t, rec)
	luser, _ := login.Data["user"].(map[string]any)
	if luser["role"] != "customer" {
		t.Fatalf("login role = %v, want customer", luser["role"])
	}
	loginRT, _ := login.Data["refreshToken"].(string)

	// Login rotated the refresh credential, so the registration token is dead.
	rec = doJSON(e, http.MethodPost, "/auth/refresh-token",
		fmt.Sprintf(`{"refreshToken":%q}`, rt), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale refresh status = %d, want 401", rec.Code)
	}

	// The current token refreshes, and rotates again.
	rec = doJSON(e, http.MethodPost, "/auth/refresh-token",
		fmt.Sprintf(`{"refreshToken":%q}`, loginRT), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", rec.Code, rec.Body.String())
	}
	refreshed := decode(t, rec)
	newRT, _ := refreshed.Data["refreshToken"].(string)
	if newRT == "" || newRT == loginRT {
		t.Fatal("refresh did not rotate the token")
	}

	// Protected route with the fresh access token.
	newTok, _ := refreshed.Data["token"].(string)
	rec = doJSON(e, http.MethodGet, "/v1/me", "", newTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("/v1/me status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Logout twice; both succeed.
	for i := 0; i < 2; i++ {
		rec = doJSON(e, http.MethodPost, "/auth/logout",
			fmt.Sprintf(`{"refreshToken":%q}`, newRT), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("logout #%d status = %d", i+1, rec.Code)
		}
	}

	// Refresh after logout fails.
	rec = doJSON(e, http.MethodPost, "/auth/refresh-token",
		fmt.Sprintf(`{"refreshToken":%q}`, newRT), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", rec.Code)
	}
}

func TestLoginFailuresLookAlike(t *testing.T) {
	e := newTestApp(1000)
	doJSON(e, http.MethodPost, "/auth/register",
		`{"email":"bob@example.com","password":"p4ssw0rd!","username":"bob"}`, "")

	wrongPass := doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"bob@example.com","password":"nope-nope"}`, "")
	noUser := doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"ghost@example.com","password":"nope-nope"}`, "")

	if wrongPass.Code != http.StatusUnauthorized || noUser.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", wrongPass.Code, noUser.Code)
	}
	if wrongPass.Body.String() != noUser.Body.String() {
		t.Fatalf("failure responses differ:\n%s\n%s", wrongPass.Body.String(), noUser.Body.String())
	}
}

func TestValidationErrors(t *testing.T) {
	e := newTestApp(1000)
	cases := []string{
		`{"email":"","password":"p4ssw0rd!","username":"x"}`,
		`{"email":"not-an-email","password":"p4ssw0rd!","username":"x"}`,
		`{"email":"ok@example.com","password":"short","username":"x"}`,
		`{"email":"ok@example.com","password":"p4ssw0rd!","username":""}`,
	}
	for _, body := range cases {
		rec := doJSON(e, http.MethodPost, "/auth/register", body, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("register %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestAuthLimiterCountsGuardedRequests(t *testing.T) {
	e := newTestApp(1)

	// The auth limiter runs before the injection guard, so a flood of
	// guard-rejected bodies still burns the budget: the first request is
	// counted and rejected by the guard, the second hits the limiter.
	body := `{"email":"x@example.com","password":"\"; DROP TABLE users;"}`
	first := doJSON(e, http.MethodPost, "/auth/login", body, "")
	second := doJSON(e, http.MethodPost, "/auth/login", body, "")

	if first.Code != http.StatusBadRequest {
		t.Fatalf("1st status = %d, want 400", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("2nd status = %d, want 429", second.Code)
	}
}

func TestAuthRateLimitAppliesRegardlessOfCredentials(t *testing.T) {
	e := newTestApp(5)
	var rec *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		rec = doJSON(e, http.MethodPost, "/auth/login",
			`{"email":"ghost@example.com","password":"whatever1"}`, "")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("6th login status = %d, want 429", rec.Code)
	}
}

func TestInjectionRejectedBeforeStore(t *testing.T) {
	e := newTestApp(1000)
	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"email":"mal@example.com","password":"p4ssw0rd!","username":"\"; DROP TABLE users;"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid input") {
		t.Fatalf("body = %s, want generic invalid-input message", rec.Body.String())
	}
	// The account was never created: registering it cleanly now works.
	rec = doJSON(e, http.MethodPost, "/auth/register",
		`{"email":"mal@example.com","password":"p4ssw0rd!","username":"mal"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("clean register status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestForgotPasswordIsUniform(t *testing.T) {
	e := newTestApp(1000)
	doJSON(e, http.MethodPost, "/auth/register",
		`{"email":"carol@example.com","password":"p4ssw0rd!","username":"carol"}`, "")

	known := doJSON(e, http.MethodPost, "/auth/forgot-password", `{"email":"carol@example.com"}`, "")
	unknown := doJSON(e, http.MethodPost, "/auth/forgot-password", `{"email":"ghost@example.com"}`, "")
	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("statuses = %d/%d, want 200/200", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatal("forgot-password responses reveal account existence")
	}
}

func TestAdminRoleGate(t *testing.T) {
	e := newTestApp(1000)
	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"email":"dave@example.com","password":"p4ssw0rd!","username":"dave"}`, "")
	reg := decode(t, rec)
	customerTok, _ := reg.Data["token"].(string)

	// A customer cannot reach the admin surface.
	rec = doJSON(e, http.MethodPatch, "/v1/admin/users/role",
		`{"email":"dave@example.com","role":"driver"}`, customerTok)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer on admin route: status = %d, want 403", rec.Code)
	}

	// An admin token passes the gate.
	iss := token.Issuer{
		AccessSecret:  "itest-access-secret",
		RefreshSecret: "itest-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}
	adminPair, _ := iss.IssueAccess(999, model.RoleAdmin)
	rec = doJSON(e, http.MethodPatch, "/v1/admin/users/role",
		`{"email":"dave@example.com","role":"driver"}`, adminPair.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin role update: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// And the promotion sticks.
	rec = doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"dave@example.com","password":"p4ssw0rd!"}`, "")
	login := decode(t, rec)
	user, _ := login.Data["user"].(map[string]any)
	if user["role"] != "driver" {
		t.Fatalf("role after promotion = %v, want driver", user["role"])
	}
}

func TestMissingBearerRejected(t *testing.T) {
	e := newTestApp(1000)
	rec := doJSON(e, http.MethodGet, "/v1/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
