package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column)
// plus the one-shot activation and password-reset tokens mailed to users.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all user's active tokens.  Called after a
// password reset so stolen refresh tokens stop working.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// ReplaceActivation deletes any previous activation token for the user and
// stores a fresh one.  The unique (user_id) key keeps at most one active
// token per account.
func (r *TokenRepo) ReplaceActivation(ctx context.Context, userID uint64, token string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM activation_tokens WHERE user_id=?", userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO activation_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, token, exp)
	return err
}

// ConsumeActivation validates the token and removes it, returning the owning
// user ID.  Expired or unknown tokens yield ErrNotFound.
func (r *TokenRepo) ConsumeActivation(ctx context.Context, token string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM activation_tokens WHERE token=? LIMIT 1",
		token).Scan(&userID, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM activation_tokens WHERE token=?", token)
	return userID, err
}

// ReplacePasswordReset mirrors ReplaceActivation for reset tokens.
func (r *TokenRepo) ReplacePasswordReset(ctx context.Context, userID uint64, token string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM password_reset_tokens WHERE user_id=?", userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, token, exp)
	return err
}

// ConsumePasswordReset validates and removes a reset token.
func (r *TokenRepo) ConsumePasswordReset(ctx context.Context, token string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM password_reset_tokens WHERE token=? LIMIT 1",
		token).Scan(&userID, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE token=?", token)
	return userID, err
}

// DeleteExpired removes all expired activation, reset and refresh tokens.
// It is executed by the periodic maintenance job and is idempotent.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var total int64
	for _, q := range []string{
		"DELETE FROM activation_tokens WHERE expires_at < UTC_TIMESTAMP()",
		"DELETE FROM password_reset_tokens WHERE expires_at < UTC_TIMESTAMP()",
		"DELETE FROM refresh_tokens WHERE expires_at < UTC_TIMESTAMP()",
	} {
		res, err := r.DB.ExecContext(ctx, q)
		if err != nil {
			return total, err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
