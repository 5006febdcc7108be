package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrRefreshInvalid covers every way a refresh token can fail validation:
// unknown hash, already revoked, or past its expiry. Handlers answer 401
// either way, so callers never need to tell the cases apart.
var ErrRefreshInvalid = errors.New("refresh token invalid")

// TokenRepo provides data access to the refresh_tokens table. Only SHA-256
// hashes of tokens are stored; the raw value exists nowhere but the client.
// Rotation works by revoking the presented hash and inserting a fresh row,
// so a replayed old token validates against nothing.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a token hash with its expiry for later validation.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh resolves a token hash to its user. It returns
// ErrRefreshInvalid for unknown, revoked and expired tokens alike.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return 0, ErrRefreshInvalid
	}
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid || !time.Now().UTC().Before(expiresAt) {
		return 0, ErrRefreshInvalid
	}
	return userID, nil
}

// RevokeByHash retires a single token, typically on rotation or logout.
// Revoking an already-revoked or unknown hash is a no-op, not an error.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser retires every live token a user holds. Logout-everywhere
// uses it, and so does account deactivation so open sessions die with the
// account.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
