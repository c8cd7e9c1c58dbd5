// Package queue defines the auth event payloads exchanged over the
// message broker and the background consumer that records them.
package queue

// Event kinds published by the auth service.
const (
    EventUserRegistered        = "user.registered"
    EventUserLoggedIn          = "user.logged_in"
    EventPasswordResetRequested = "auth.password_reset_requested"
)

// AuthEvent is published whenever an account-lifecycle action succeeds.
// Downstream consumers (audit log, welcome/reset mailers, analytics) get
// enough to act on without querying the primary database.  ResetToken is
// set only for password-reset events, where the mailer needs the raw
// token to build the reset link; it is never logged by the audit
// consumer.
type AuthEvent struct {
    Kind       string `json:"kind"`
    UserID     uint64 `json:"user_id"`
    Email      string `json:"email"`
    Username   string `json:"username,omitempty"`
    Role       string `json:"role,omitempty"`
    ResetToken string `json:"reset_token,omitempty"`
    OccurredAt string `json:"occurred_at"`
}
