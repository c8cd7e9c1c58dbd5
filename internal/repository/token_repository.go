package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo persists refresh-token digests.  refresh_tokens carries a
// UNIQUE key on user_id, so the table holds one live credential per user
// and every write below is a single atomic statement: rotation is an
// upsert, never a read-modify-write, which keeps a concurrent login and
// refresh for the same user from corrupting the row (last writer wins).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// UpsertRefresh stores the token hash for a user, replacing any previous
// row.  Registration, login and refresh all go through this path, so a
// new credential always invalidates the old one.
func (r *TokenRepo) UpsertRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		 VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE token_hash=VALUES(token_hash), expires_at=VALUES(expires_at), created_at=NOW()`,
		userID, tokenHash, exp)
	return err
}

// FindRefresh reports whether the stored, unexpired credential for userID
// matches tokenHash exactly.  A signature-valid token that has been
// rotated away or deleted at logout fails this check.
func (r *TokenRepo) FindRefresh(ctx context.Context, userID uint64, tokenHash string) (bool, error) {
	var expiresAt time.Time
	err := r.DB.QueryRowContext(ctx,
		"SELECT expires_at FROM refresh_tokens WHERE user_id=? AND token_hash=? LIMIT 1",
		userID, tokenHash).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if time.Now().UTC().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

// DeleteByHash removes a refresh token row.  Deleting an absent token is
// not an error; logout is idempotent.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// DeleteForUser removes the user's refresh token, ending their session on
// every device.  Used after a password reset.
func (r *TokenRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
