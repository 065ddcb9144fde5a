package postgres

import (
	"context"
	"errors"
	"fmt"

	"noteserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

// CreateUser inserts a disabled account. It stays disabled until the
// verification token is consumed.
func (s *UsersStore) CreateUser(ctx context.Context, email, username, passwordHash string, roles []string) (domain.User, error) {
	const q = `
		INSERT INTO users (email, username, password_hash, roles)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, username, roles, enabled, created_at, updated_at
	`

	u, err := scanUser(s.pool.QueryRow(ctx, q, email, username, passwordHash, roles))
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" && pgerr.ConstraintName == "users_email_uq" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `
		SELECT id, email, username, roles, enabled, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `
		SELECT id, email, username, password_hash, roles, enabled, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var (
		u      domain.UserWithPassword
		idUUID pgtype.UUID
		roles  pgtype.FlatArray[string]
	)
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&idUUID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&roles,
		&u.Enabled,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	u.Roles = textArrayOrEmpty(roles)
	return u, nil
}

func (s *UsersStore) UpdateProfile(ctx context.Context, userID, email, username string) (domain.User, error) {
	const q = `
		UPDATE users
		SET email = $2, username = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, email, username, roles, enabled, created_at, updated_at
	`

	u, err := scanUser(s.pool.QueryRow(ctx, q, userID, email, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" && pgerr.ConstraintName == "users_email_uq" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const q = `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteUser removes the account. Ephemeral tokens and notes go with it via
// ON DELETE CASCADE.
func (s *UsersStore) DeleteUser(ctx context.Context, userID string) error {
	const q = `DELETE FROM users WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u      domain.User
		idUUID pgtype.UUID
		roles  pgtype.FlatArray[string]
	)
	err := row.Scan(
		&idUUID,
		&u.Email,
		&u.Username,
		&roles,
		&u.Enabled,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.Roles = textArrayOrEmpty(roles)
	return u, nil
}
