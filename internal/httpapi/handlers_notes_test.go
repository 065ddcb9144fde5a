package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"noteserver/internal/domain"
	"noteserver/internal/service"
)

type stubNotesStore struct {
	t *testing.T

	createNoteFunc func(context.Context, string, string, string) (domain.Note, error)
	listNotesFunc  func(context.Context, string, int) ([]domain.Note, error)
}

func (s *stubNotesStore) CreateNote(ctx context.Context, userID, title, content string) (domain.Note, error) {
	if s.createNoteFunc != nil {
		return s.createNoteFunc(ctx, userID, title, content)
	}
	s.t.Fatalf("CreateNote called unexpectedly")
	return domain.Note{}, errors.New("unexpected call")
}

func (s *stubNotesStore) GetNote(ctx context.Context, userID, noteID string) (domain.Note, error) {
	s.t.Fatalf("GetNote called unexpectedly")
	return domain.Note{}, errors.New("unexpected call")
}

func (s *stubNotesStore) ListNotes(ctx context.Context, userID string, limit int) ([]domain.Note, error) {
	if s.listNotesFunc != nil {
		return s.listNotesFunc(ctx, userID, limit)
	}
	s.t.Fatalf("ListNotes called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubNotesStore) UpdateNote(ctx context.Context, userID, noteID, title, content string) (domain.Note, error) {
	s.t.Fatalf("UpdateNote called unexpectedly")
	return domain.Note{}, errors.New("unexpected call")
}

func (s *stubNotesStore) DeleteNote(ctx context.Context, userID, noteID string) error {
	s.t.Fatalf("DeleteNote called unexpectedly")
	return errors.New("unexpected call")
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(context.WithValue(req.Context(), authUserKey, domain.User{ID: "user-1", Email: "writer@example.com"}))
}

// Note payloads use the same snake_case field names as the rest of the API.
func TestNotesCreateResponseFields(t *testing.T) {
	createdAt := time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)
	store := &stubNotesStore{
		t: t,
		createNoteFunc: func(_ context.Context, userID, title, content string) (domain.Note, error) {
			return domain.Note{
				ID:        "note-1",
				UserID:    userID,
				Title:     title,
				Content:   content,
				CreatedAt: createdAt,
				UpdatedAt: createdAt,
			}, nil
		},
	}
	a := &api{notesSvc: &service.NotesService{Store: store}}

	req := authedRequest(http.MethodPost, "/v1/notes", `{"title":"Groceries","content":"milk"}`)
	rr := httptest.NewRecorder()
	a.handleNotesCreate(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rr.Code, rr.Body.String())
	}

	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"id", "user_id", "title", "content", "created_at", "updated_at"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing %q in note payload: %v", key, payload)
		}
	}
	for _, key := range []string{"ID", "UserID", "CreatedAt"} {
		if _, ok := payload[key]; ok {
			t.Fatalf("Go field name %q leaked into note payload: %v", key, payload)
		}
	}
	if payload["id"] != "note-1" || payload["user_id"] != "user-1" {
		t.Fatalf("unexpected note payload: %v", payload)
	}
}

func TestNotesListResponseFields(t *testing.T) {
	store := &stubNotesStore{
		t: t,
		listNotesFunc: func(_ context.Context, userID string, limit int) ([]domain.Note, error) {
			if userID != "user-1" || limit != 50 {
				t.Fatalf("unexpected list args: %s %d", userID, limit)
			}
			return []domain.Note{{ID: "note-1", UserID: userID, Title: "Groceries"}}, nil
		},
	}
	a := &api{notesSvc: &service.NotesService{Store: store}}

	req := authedRequest(http.MethodGet, "/v1/notes", "")
	rr := httptest.NewRecorder()
	a.handleNotesList(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	var payload []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload) != 1 {
		t.Fatalf("unexpected list length: %d", len(payload))
	}
	if payload[0]["user_id"] != "user-1" {
		t.Fatalf("unexpected list payload: %v", payload[0])
	}
}
