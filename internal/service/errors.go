// Package service implements the authentication orchestration: it
// coordinates the credential store, the token issuer and the session
// mirror, owning none of them.  Every failure is classified into one of
// the sentinel errors below; anything unclassified is reported to callers
// as a generic internal failure with the cause logged server-side only.
package service

import "errors"

var (
	// ErrEmailExists – registration hit an existing account.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials – login failed.  Deliberately covers both an
	// unknown email and a wrong password so responses cannot be used to
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefresh – the presented refresh token is malformed,
	// expired, revoked or superseded by a newer one.
	ErrInvalidRefresh = errors.New("invalid refresh token")
	// ErrUserNotFound – the token's owner no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidReset – the password-reset token is unknown, expired or
	// already used.
	ErrInvalidReset = errors.New("invalid or expired reset token")
)
