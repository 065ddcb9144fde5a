package postgres

import (
	"context"
	"errors"
	"fmt"

	"noteserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EphemeralTokensStore struct {
	pool *pgxpool.Pool
}

func NewEphemeralTokensStore(pool *pgxpool.Pool) *EphemeralTokensStore {
	return &EphemeralTokensStore{pool: pool}
}

// Replace deletes any live token of the same kind for the user and inserts
// the new one. Both statements run in one transaction, so a user never holds
// two live tokens of one kind.
func (s *EphemeralTokensStore) Replace(ctx context.Context, t domain.EphemeralToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace token: %w", err)
	}
	defer tx.Rollback(ctx)

	const del = `DELETE FROM ephemeral_tokens WHERE user_id = $1 AND kind = $2`
	if _, err := tx.Exec(ctx, del, t.UserID, t.Kind); err != nil {
		return fmt.Errorf("delete prior token: %w", err)
	}

	const ins = `
		INSERT INTO ephemeral_tokens (token, kind, user_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, ins, t.ID, t.Kind, t.UserID, t.IssuedAt, t.ExpiresAt); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace token: %w", err)
	}
	return nil
}

func (s *EphemeralTokensStore) Get(ctx context.Context, id string) (domain.EphemeralToken, error) {
	const q = `
		SELECT token, kind, user_id, issued_at, expires_at
		FROM ephemeral_tokens
		WHERE token = $1
	`

	var (
		t         domain.EphemeralToken
		tokenUUID pgtype.UUID
		userUUID  pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&tokenUUID,
		&t.Kind,
		&userUUID,
		&t.IssuedAt,
		&t.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EphemeralToken{}, domain.ErrNotFound
		}
		return domain.EphemeralToken{}, fmt.Errorf("get ephemeral token: %w", err)
	}

	t.ID = uuidOrEmpty(tokenUUID)
	t.UserID = uuidOrEmpty(userUUID)
	return t, nil
}

func (s *EphemeralTokensStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM ephemeral_tokens WHERE token = $1`
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete ephemeral token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConsumeVerification deletes the verification token and enables its owner
// in one transaction. A crash cannot leave the token consumed with the
// account still disabled.
func (s *EphemeralTokensStore) ConsumeVerification(ctx context.Context, id string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin consume verification: %w", err)
	}
	defer tx.Rollback(ctx)

	userID, err := deleteTokenReturningUser(ctx, tx, id, domain.TokenKindVerification)
	if err != nil {
		return "", err
	}

	const enable = `UPDATE users SET enabled = true, updated_at = now() WHERE id = $1`
	if _, err := tx.Exec(ctx, enable, userID); err != nil {
		return "", fmt.Errorf("enable user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit consume verification: %w", err)
	}
	return userID, nil
}

// ConsumeReset deletes the reset token and installs the new password hash in
// one transaction.
func (s *EphemeralTokensStore) ConsumeReset(ctx context.Context, id, passwordHash string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin consume reset: %w", err)
	}
	defer tx.Rollback(ctx)

	userID, err := deleteTokenReturningUser(ctx, tx, id, domain.TokenKindPasswordReset)
	if err != nil {
		return "", err
	}

	const setPassword = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	if _, err := tx.Exec(ctx, setPassword, userID, passwordHash); err != nil {
		return "", fmt.Errorf("set password hash: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit consume reset: %w", err)
	}
	return userID, nil
}

func deleteTokenReturningUser(ctx context.Context, tx pgx.Tx, id string, kind domain.TokenKind) (string, error) {
	const q = `
		DELETE FROM ephemeral_tokens
		WHERE token = $1 AND kind = $2
		RETURNING user_id
	`

	var userUUID pgtype.UUID
	if err := tx.QueryRow(ctx, q, id, kind).Scan(&userUUID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTokenNotFound
		}
		return "", fmt.Errorf("consume token: %w", err)
	}
	return uuidOrEmpty(userUUID), nil
}
