package token // package token creates and verifies the signed credentials used by the auth flow

import (
    "crypto/sha256" // SHA-256 digests for at-rest refresh token storage
    "encoding/hex"  // hex encoding of digests
    "errors"        // sentinel error values
    "strconv"       // numeric claim conversion
    "time"          // expiry arithmetic

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // jti values so rotated refresh tokens never collide
)

// ErrInvalidToken is returned by the verify functions for any token that
// is malformed, signed with the wrong secret or key type, or expired.
// Callers get no finer detail; the distinctions only matter in logs.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the verified payload of a token.  Role is empty for refresh
// tokens, which identify the user only.
type Claims struct {
    UserID uint64
    Role   string
}

// Issuer signs access and refresh tokens with two independent secrets.
// Two secrets mean a leaked access token cannot be replayed against the
// refresh endpoint and a stolen refresh token is useless as a bearer
// credential.  Access tokens are short-lived and verified statelessly;
// refresh tokens additionally have to match the digest held in storage.
type Issuer struct {
    AccessSecret  string
    RefreshSecret string
    AccessTTL     time.Duration
    RefreshTTL    time.Duration
}

// Pair bundles a signed token with its expiry instant.
type Pair struct {
    Token string
    Exp   time.Time
}

// IssueAccess builds and signs an HS256 JWT carrying the user id and role.
// Standard claims: subject (sub), role, expiration (exp), issued at (iat).
func (i Issuer) IssueAccess(userID uint64, role string) (Pair, error) {
    now := time.Now().UTC()
    exp := now.Add(i.AccessTTL)
    claims := jwt.MapClaims{
        "sub":  strconv.FormatUint(userID, 10),
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(i.AccessSecret))
    if err != nil {
        return Pair{}, err
    }
    return Pair{Token: signed, Exp: exp}, nil
}

// IssueRefresh builds and signs an HS256 JWT identifying the user, using
// the refresh secret.  A random jti claim makes every issued token unique
// even when two are minted for the same user within one second.
func (i Issuer) IssueRefresh(userID uint64) (Pair, error) {
    now := time.Now().UTC()
    exp := now.Add(i.RefreshTTL)
    claims := jwt.MapClaims{
        "sub": strconv.FormatUint(userID, 10),
        "jti": uuid.NewString(),
        "exp": exp.Unix(),
        "iat": now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(i.RefreshSecret))
    if err != nil {
        return Pair{}, err
    }
    return Pair{Token: signed, Exp: exp}, nil
}

// VerifyAccess checks signature and expiry against the access secret and
// returns the embedded claims.
func (i Issuer) VerifyAccess(raw string) (Claims, error) {
    return verify(raw, i.AccessSecret)
}

// VerifyRefresh checks signature and expiry against the refresh secret.
// The caller must still confirm the token against storage; a valid
// signature proves issuance, not that the token is the live one.
func (i Issuer) VerifyRefresh(raw string) (Claims, error) {
    return verify(raw, i.RefreshSecret)
}

func verify(raw, secret string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    var c Claims
    switch sub := mc["sub"].(type) {
    case string:
        n, err := strconv.ParseUint(sub, 10, 64)
        if err != nil {
            return Claims{}, ErrInvalidToken
        }
        c.UserID = n
    case float64:
        // Older tokens carried a numeric subject.
        c.UserID = uint64(sub)
    default:
        return Claims{}, ErrInvalidToken
    }
    if role, ok := mc["role"].(string); ok {
        c.Role = role
    }
    return c, nil
}

// Hash returns the SHA-256 hex digest of a raw token.  Only digests reach
// the database, so a leaked refresh_tokens table cannot be replayed.
func Hash(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
