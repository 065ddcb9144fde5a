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

type NotesStore struct {
	pool *pgxpool.Pool
}

func NewNotesStore(pool *pgxpool.Pool) *NotesStore {
	return &NotesStore{pool: pool}
}

func (s *NotesStore) CreateNote(ctx context.Context, userID, title, content string) (domain.Note, error) {
	const q = `
		INSERT INTO notes (user_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, title, content, created_at, updated_at
	`
	n, err := scanNote(s.pool.QueryRow(ctx, q, userID, title, content))
	if err != nil {
		return domain.Note{}, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

// GetNote is scoped to the owner; another user's note id behaves as absent.
func (s *NotesStore) GetNote(ctx context.Context, userID, noteID string) (domain.Note, error) {
	const q = `
		SELECT id, user_id, title, content, created_at, updated_at
		FROM notes
		WHERE id = $1 AND user_id = $2
	`
	n, err := scanNote(s.pool.QueryRow(ctx, q, noteID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Note{}, domain.ErrNotFound
		}
		return domain.Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

func (s *NotesStore) ListNotes(ctx context.Context, userID string, limit int) ([]domain.Note, error) {
	const q = `
		SELECT id, user_id, title, content, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (s *NotesStore) UpdateNote(ctx context.Context, userID, noteID, title, content string) (domain.Note, error) {
	const q = `
		UPDATE notes
		SET title = $3, content = $4, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, content, created_at, updated_at
	`
	n, err := scanNote(s.pool.QueryRow(ctx, q, noteID, userID, title, content))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Note{}, domain.ErrNotFound
		}
		return domain.Note{}, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

func (s *NotesStore) DeleteNote(ctx context.Context, userID, noteID string) error {
	const q = `DELETE FROM notes WHERE id = $1 AND user_id = $2`
	tag, err := s.pool.Exec(ctx, q, noteID, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanNote(row pgx.Row) (domain.Note, error) {
	var (
		n        domain.Note
		idUUID   pgtype.UUID
		userUUID pgtype.UUID
	)
	err := row.Scan(
		&idUUID,
		&userUUID,
		&n.Title,
		&n.Content,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return domain.Note{}, err
	}
	n.ID = uuidOrEmpty(idUUID)
	n.UserID = uuidOrEmpty(userUUID)
	return n, nil
}
