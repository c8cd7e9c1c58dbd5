package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ResetRepo persists password-reset token digests.  A reset token is
// single use: Consume deletes the row in the same statement that matches
// it, so two concurrent resets with the same token cannot both succeed.
type ResetRepo struct{ DB *sql.DB }

func NewResetRepo(db *sql.DB) *ResetRepo { return &ResetRepo{DB: db} }

// Create stores a reset token hash for a user.  Minting a new token
// replaces any outstanding one for the same user.
func (r *ResetRepo) Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO password_resets (user_id, token_hash, expires_at)
		 VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE token_hash=VALUES(token_hash), expires_at=VALUES(expires_at), created_at=NOW()`,
		userID, tokenHash, exp)
	return err
}

// Consume looks up an unexpired reset token by hash, deletes it, and
// returns the owning user id.  ErrNotFound covers both an unknown and an
// already-used token.
func (r *ResetRepo) Consume(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM password_resets WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM password_resets WHERE token_hash=?", tokenHash)
	if err != nil {
		return 0, err
	}
	// Rows-affected guards the race where another request consumed the
	// token between the select and the delete.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, ErrNotFound
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}
