package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/quickbite/order-api/internal/model"
	"github.com/quickbite/order-api/internal/queue"
	"github.com/quickbite/order-api/internal/repository"
	"github.com/quickbite/order-api/internal/session"
	"github.com/quickbite/order-api/internal/token"

	"github.com/google/uuid"
)

// UserStore is the slice of the credential store the auth service needs
// for user records.  *repository.UserRepo satisfies it; tests plug in
// in-memory fakes.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, username, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateRole(ctx context.Context, email, role string) error
	UpdatePasswordHash(ctx context.Context, userID uint64, hash string) error
}

// TokenStore persists refresh-token digests with one live row per user.
type TokenStore interface {
	UpsertRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	FindRefresh(ctx context.Context, userID uint64, tokenHash string) (bool, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteForUser(ctx context.Context, userID uint64) error
}

// ResetStore persists single-use password-reset token digests.
type ResetStore interface {
	Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Consume(ctx context.Context, tokenHash string) (uint64, error)
}

// PublishFunc delivers an auth event to the broker.  Publishing is
// best-effort: the auth service logs failures and carries on.
type PublishFunc func(ctx context.Context, ev queue.AuthEvent) error

// Auth orchestrates registration, login, token refresh and logout.  It is
// a pure coordinator: storage belongs to the repos, signing to the
// issuer, session state to the session store.
type Auth struct {
	users      UserStore
	tokens     TokenStore
	resets     ResetStore
	sessions   session.Store
	issuer     token.Issuer
	bcryptCost int
	resetTTL   time.Duration
	publish    PublishFunc // may be nil
}

func NewAuth(users UserStore, tokens TokenStore, resets ResetStore, sessions session.Store,
	issuer token.Issuer, bcryptCost int, resetTTL time.Duration, publish PublishFunc) *Auth {
	return &Auth{
		users:      users,
		tokens:     tokens,
		resets:     resets,
		sessions:   sessions,
		issuer:     issuer,
		bcryptCost: bcryptCost,
		resetTTL:   resetTTL,
		publish:    publish,
	}
}

// Result is what a successful register/login/refresh returns.  Session is
// an immutable mirror value; the handler layer attaches it as a cookie
// and downstream code never mutates it.
type Result struct {
	User         model.User
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	Session      session.Session
}

// Register creates a customer account and signs the user in.  Duplicate
// detection relies on the store's uniqueness constraint, so two
// concurrent registrations for one email cannot both succeed.
func (a *Auth) Register(ctx context.Context, email, password, username string) (Result, error) {
	hash, err := token.HashPassword(password, a.bcryptCost)
	if err != nil {
		return Result{}, err
	}
	uid, err := a.users.Create(ctx, email, hash, username, model.RoleCustomer)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Result{}, ErrEmailExists
		}
		return Result{}, err
	}
	u, err := a.users.GetByID(ctx, uid)
	if err != nil {
		return Result{}, err
	}
	res, err := a.establish(ctx, u)
	if err != nil {
		return Result{}, err
	}
	a.emit(ctx, queue.AuthEvent{Kind: queue.EventUserRegistered, UserID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role})
	return res, nil
}

// Login verifies credentials and rotates the user's refresh token.  An
// unknown email and a wrong password produce the same error.
func (a *Auth) Login(ctx context.Context, email, password string) (Result, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, err
	}
	if !token.VerifyPassword(u.PasswordHash, password) {
		return Result{}, ErrInvalidCredentials
	}
	res, err := a.establish(ctx, u)
	if err != nil {
		return Result{}, err
	}
	a.emit(ctx, queue.AuthEvent{Kind: queue.EventUserLoggedIn, UserID: u.ID, Email: u.Email, Role: u.Role})
	return res, nil
}

// Refresh exchanges a live refresh token for a new access/refresh pair.
// The token must carry a valid signature AND match the stored digest for
// its user: a signature-valid token that was rotated away or deleted at
// logout is rejected.  Every successful refresh rotates again.
func (a *Auth) Refresh(ctx context.Context, refreshToken string, sessionID string) (Result, error) {
	claims, err := a.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return Result{}, ErrInvalidRefresh
	}
	ok, err := a.tokens.FindRefresh(ctx, claims.UserID, token.Hash(refreshToken))
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, ErrInvalidRefresh
	}
	u, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, ErrUserNotFound
		}
		return Result{}, err
	}

	access, err := a.issuer.IssueAccess(u.ID, u.Role)
	if err != nil {
		return Result{}, err
	}
	refresh, err := a.issuer.IssueRefresh(u.ID)
	if err != nil {
		return Result{}, err
	}
	if err := a.tokens.UpsertRefresh(ctx, u.ID, token.Hash(refresh.Token), refresh.Exp); err != nil {
		return Result{}, err
	}

	res := Result{
		User:         u,
		AccessToken:  access.Token,
		AccessExp:    access.Exp,
		RefreshToken: refresh.Token,
		RefreshExp:   refresh.Exp,
	}
	// Extend the existing mirror when the caller still has one; a missing
	// mirror is not an error, tokens alone are a valid state.
	if sessionID != "" {
		if sess, err := a.sessions.Get(ctx, sessionID); err == nil {
			if err := a.sessions.Refresh(ctx, sessionID, a.issuer.RefreshTTL); err == nil {
				res.Session = sess
			}
		}
	}
	return res, nil
}

// Logout revokes the presented refresh token and destroys the session
// mirror.  It always succeeds from the caller's point of view: a missing
// token row is fine (idempotent) and a session-store failure is logged
// and swallowed.
func (a *Auth) Logout(ctx context.Context, refreshToken, sessionID string) {
	if refreshToken != "" {
		if err := a.tokens.DeleteByHash(ctx, token.Hash(refreshToken)); err != nil {
			log.Printf("auth: logout token delete failed: %v", err)
		}
	}
	if sessionID != "" {
		if err := a.sessions.Delete(ctx, sessionID); err != nil {
			log.Printf("auth: logout session destroy failed: %v", err)
		}
	}
}

// ForgotPassword mints a single-use reset token when the account exists
// and publishes it for the mailer.  The caller gets no signal either way;
// the HTTP layer returns the same generic message for every email.
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil // indistinguishable from success
		}
		return err
	}
	raw := uuid.NewString()
	exp := time.Now().UTC().Add(a.resetTTL)
	if err := a.resets.Create(ctx, u.ID, token.Hash(raw), exp); err != nil {
		return err
	}
	a.emit(ctx, queue.AuthEvent{Kind: queue.EventPasswordResetRequested, UserID: u.ID, Email: u.Email, ResetToken: raw})
	return nil
}

// ResetPassword consumes a reset token and replaces the user's password.
// All refresh tokens for the user are revoked so every open session has
// to re-authenticate with the new password.
func (a *Auth) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	uid, err := a.resets.Consume(ctx, token.Hash(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidReset
		}
		return err
	}
	hash, err := token.HashPassword(newPassword, a.bcryptCost)
	if err != nil {
		return err
	}
	if err := a.users.UpdatePasswordHash(ctx, uid, hash); err != nil {
		return err
	}
	if err := a.tokens.DeleteForUser(ctx, uid); err != nil {
		log.Printf("auth: reset token revocation failed for user %d: %v", uid, err)
	}
	return nil
}

// UpdateUserRole changes a user's role; the handler restricts this to
// admins.
func (a *Auth) UpdateUserRole(ctx context.Context, email, role string) error {
	if !model.ValidRole(role) {
		return ErrInvalidCredentials
	}
	if err := a.users.UpdateRole(ctx, email, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// establish issues a fresh token pair, rotates the stored refresh digest
// and writes a new session mirror.  Shared by Register and Login.
func (a *Auth) establish(ctx context.Context, u model.User) (Result, error) {
	access, err := a.issuer.IssueAccess(u.ID, u.Role)
	if err != nil {
		return Result{}, err
	}
	refresh, err := a.issuer.IssueRefresh(u.ID)
	if err != nil {
		return Result{}, err
	}
	if err := a.tokens.UpsertRefresh(ctx, u.ID, token.Hash(refresh.Token), refresh.Exp); err != nil {
		return Result{}, err
	}
	sess := session.New(u.ID, u.Email, u.Username, u.Role, a.issuer.RefreshTTL)
	if err := a.sessions.Create(ctx, sess, a.issuer.RefreshTTL); err != nil {
		// Tokens are already valid; a dead session store should not fail
		// the sign-in.
		log.Printf("auth: session mirror write failed for user %d: %v", u.ID, err)
		sess = session.Session{}
	}
	return Result{
		User:         u,
		AccessToken:  access.Token,
		AccessExp:    access.Exp,
		RefreshToken: refresh.Token,
		RefreshExp:   refresh.Exp,
		Session:      sess,
	}, nil
}

// emit publishes an auth event, logging and swallowing any failure.
func (a *Auth) emit(ctx context.Context, ev queue.AuthEvent) {
	if a.publish == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	if err := a.publish(ctx, ev); err != nil {
		log.Printf("auth: event publish failed (%s): %v", ev.Kind, err)
	}
}
