package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"noteserver/internal/domain"
)

type NotesStore interface {
	CreateNote(ctx context.Context, userID, title, content string) (domain.Note, error)
	GetNote(ctx context.Context, userID, noteID string) (domain.Note, error)
	ListNotes(ctx context.Context, userID string, limit int) ([]domain.Note, error)
	UpdateNote(ctx context.Context, userID, noteID, title, content string) (domain.Note, error)
	DeleteNote(ctx context.Context, userID, noteID string) error
}

type NotesService struct {
	Store NotesStore
}

const (
	maxNoteTitleLen   = 200
	maxNoteContentLen = 100 * 1024
	defaultNotesLimit = 50
	maxNotesLimit     = 200
)

func validateNote(title, content string) error {
	fields := map[string]string{}
	if strings.TrimSpace(title) == "" {
		fields["title"] = "required"
	} else if utf8.RuneCountInString(title) > maxNoteTitleLen {
		fields["title"] = "must be 200 characters or less"
	}
	if len(content) > maxNoteContentLen {
		fields["content"] = "must be 100KB or less"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}

func (s *NotesService) Create(ctx context.Context, userID, title, content string) (domain.Note, error) {
	title = strings.TrimSpace(title)
	if err := validateNote(title, content); err != nil {
		return domain.Note{}, err
	}
	return s.Store.CreateNote(ctx, userID, title, content)
}

func (s *NotesService) Get(ctx context.Context, userID, noteID string) (domain.Note, error) {
	return s.Store.GetNote(ctx, userID, noteID)
}

func (s *NotesService) List(ctx context.Context, userID string, limit int) ([]domain.Note, error) {
	if limit < 1 {
		limit = defaultNotesLimit
	}
	if limit > maxNotesLimit {
		limit = maxNotesLimit
	}
	return s.Store.ListNotes(ctx, userID, limit)
}

func (s *NotesService) Update(ctx context.Context, userID, noteID, title, content string) (domain.Note, error) {
	title = strings.TrimSpace(title)
	if err := validateNote(title, content); err != nil {
		return domain.Note{}, err
	}
	return s.Store.UpdateNote(ctx, userID, noteID, title, content)
}

func (s *NotesService) Delete(ctx context.Context, userID, noteID string) error {
	return s.Store.DeleteNote(ctx, userID, noteID)
}
