package model

import "time"

// RefreshToken models a row in the `refresh_tokens` table.  The table
// carries a UNIQUE key on user_id, so each user has at most one live
// refresh credential: every login and every refresh replaces the previous
// row, invalidating older tokens.  The raw token string is never stored;
// only its SHA-256 hex digest.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token (unique per user).
//  TokenHash – SHA-256 hex digest of the raw token value.
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of creation (reset on every rotation).
type RefreshToken struct {
    ID        uint64    // refresh_tokens.id
    UserID    uint64    // refresh_tokens.user_id
    TokenHash string    // refresh_tokens.token_hash
    ExpiresAt time.Time // refresh_tokens.expires_at
    CreatedAt time.Time // refresh_tokens.created_at
}

// PasswordReset models a row in the `password_resets` table.  A row is
// minted by the forgot-password flow and consumed (deleted) by exactly one
// successful reset.  As with refresh tokens, only the digest of the raw
// reset token touches the database.
type PasswordReset struct {
    ID        uint64    // password_resets.id
    UserID    uint64    // password_resets.user_id
    TokenHash string    // password_resets.token_hash
    ExpiresAt time.Time // password_resets.expires_at
    CreatedAt time.Time // password_resets.created_at
}
