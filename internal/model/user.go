package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
const (
	RoleAdmin     = "ADMIN"
	RoleLibrarian = "LIBRARIAN"
	RoleStudent   = "STUDENT"
)

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column. The json tags
// are omitted because these structs are used internally by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lowercased email address.
//  PasswordHash – bcrypt hashed password.
//  FullName     – display name of the user.
//  Role         – role name (ADMIN, LIBRARIAN or STUDENT).
//  IsActive     – whether the account may log in and borrow.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     string    // users.full_name
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user and carries expiry and revocation
// metadata. The plain token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
