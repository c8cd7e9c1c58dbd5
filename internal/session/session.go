// Package session holds the server-side session mirror: a copy of the
// authenticated identity kept independently of token possession and
// destroyed on logout.  Sessions are immutable values; replacing one means
// writing a new value under the same id, never mutating in place.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no live session exists for an id.
var ErrNotFound = errors.New("session not found")

// Session mirrors an authenticated identity for the lifetime of the
// session cookie.  Downstream handlers receive it read-only.
type Session struct {
	ID            string    `json:"id"`
	UserID        uint64    `json:"user_id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	Authenticated bool      `json:"authenticated"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// New builds a session value with a fresh random id.
func New(userID uint64, email, username, role string, ttl time.Duration) Session {
	return Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		Email:         email,
		Username:      username,
		Role:          role,
		Authenticated: true,
		ExpiresAt:     time.Now().UTC().Add(ttl),
	}
}

// Store persists session mirrors.  Implementations must treat sessions as
// opaque values: Create writes, Refresh extends the deadline, Delete
// removes.  Delete on an absent session is not an error.
type Store interface {
	Create(ctx context.Context, s Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (Session, error)
	Refresh(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
