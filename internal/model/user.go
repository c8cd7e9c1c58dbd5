package model

import "time"

// Roles recognised by the platform.  The role is carried inside access
// tokens and drives route-level authorization: customers order food,
// drivers deliver it, admins manage the catalogue and promote users.
const (
    RoleCustomer = "customer"
    RoleAdmin    = "admin"
    RoleDriver   = "driver"
)

// ValidRole reports whether s is one of the recognised role names.
func ValidRole(s string) bool {
    switch s {
    case RoleCustomer, RoleAdmin, RoleDriver:
        return true
    }
    return false
}

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column.  Handlers define separate
// response types with JSON tags; the password hash never leaves this
// layer.  Exactly one user exists per (lower-cased, trimmed) email.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, case-normalized email address.
//  Username     – display name shown on orders and reviews.
//  PasswordHash – bcrypt hashed password; the plaintext is never stored.
//  Role         – one of customer | admin | driver.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    Username     string    // users.username
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
