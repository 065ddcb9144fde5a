package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"noteserver/internal/auth"
	"noteserver/internal/domain"

	"github.com/google/uuid"
)

type stubTokensStore struct {
	t *testing.T

	replaceFunc             func(context.Context, domain.EphemeralToken) error
	getFunc                 func(context.Context, string) (domain.EphemeralToken, error)
	deleteFunc              func(context.Context, string) error
	consumeVerificationFunc func(context.Context, string) (string, error)
	consumeResetFunc        func(context.Context, string, string) (string, error)
}

func (s *stubTokensStore) Replace(ctx context.Context, tok domain.EphemeralToken) error {
	if s.replaceFunc != nil {
		return s.replaceFunc(ctx, tok)
	}
	s.t.Fatalf("Replace called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubTokensStore) Get(ctx context.Context, id string) (domain.EphemeralToken, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, id)
	}
	s.t.Fatalf("Get called unexpectedly")
	return domain.EphemeralToken{}, errors.New("unexpected call")
}

func (s *stubTokensStore) Delete(ctx context.Context, id string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, id)
	}
	s.t.Fatalf("Delete called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubTokensStore) ConsumeVerification(ctx context.Context, id string) (string, error) {
	if s.consumeVerificationFunc != nil {
		return s.consumeVerificationFunc(ctx, id)
	}
	s.t.Fatalf("ConsumeVerification called unexpectedly")
	return "", errors.New("unexpected call")
}

func (s *stubTokensStore) ConsumeReset(ctx context.Context, id, passwordHash string) (string, error) {
	if s.consumeResetFunc != nil {
		return s.consumeResetFunc(ctx, id, passwordHash)
	}
	s.t.Fatalf("ConsumeReset called unexpectedly")
	return "", errors.New("unexpected call")
}

func TestTokenServiceIssue(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	var stored domain.EphemeralToken
	store := &stubTokensStore{
		t: t,
		replaceFunc: func(_ context.Context, tok domain.EphemeralToken) error {
			stored = tok
			return nil
		},
	}

	svc := &TokenService{
		Store:           store,
		VerificationTTL: 15 * time.Minute,
		ResetTTL:        30 * time.Minute,
		Now:             func() time.Time { return now },
	}

	tok, err := svc.Issue(context.Background(), domain.TokenKindVerification, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != stored {
		t.Fatalf("returned token differs from stored token")
	}
	if _, err := uuid.Parse(tok.ID); err != nil {
		t.Fatalf("token id is not a uuid: %q", tok.ID)
	}
	if tok.UserID != "user-1" || tok.Kind != domain.TokenKindVerification {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if !tok.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry: %s", tok.ExpiresAt)
	}

	reset, err := svc.Issue(context.Background(), domain.TokenKindPasswordReset, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reset.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("reset token got verification ttl: %s", reset.ExpiresAt)
	}
}

func TestTokenServiceConfirmRegistration(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	id := uuid.NewString()

	store := &stubTokensStore{
		t: t,
		getFunc: func(_ context.Context, gotID string) (domain.EphemeralToken, error) {
			if gotID != id {
				t.Fatalf("unexpected lookup: %s", gotID)
			}
			return domain.EphemeralToken{
				ID:        id,
				Kind:      domain.TokenKindVerification,
				UserID:    "user-1",
				ExpiresAt: now.Add(time.Minute),
			}, nil
		},
		consumeVerificationFunc: func(_ context.Context, gotID string) (string, error) {
			if gotID != id {
				t.Fatalf("unexpected consume: %s", gotID)
			}
			return "user-1", nil
		},
	}

	svc := &TokenService{Store: store, Now: func() time.Time { return now }}

	userID, err := svc.ConfirmRegistration(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestTokenServiceMalformedID(t *testing.T) {
	// No store calls: a non-uuid can never be a live token.
	svc := &TokenService{Store: &stubTokensStore{t: t}}

	_, err := svc.ConfirmRegistration(context.Background(), "not-a-uuid")
	if !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestTokenServiceKindMismatch(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	id := uuid.NewString()

	store := &stubTokensStore{
		t: t,
		getFunc: func(_ context.Context, _ string) (domain.EphemeralToken, error) {
			return domain.EphemeralToken{
				ID:        id,
				Kind:      domain.TokenKindPasswordReset,
				UserID:    "user-1",
				ExpiresAt: now.Add(time.Minute),
			}, nil
		},
	}

	svc := &TokenService{Store: store, Now: func() time.Time { return now }}

	// A reset token must not verify a registration.
	if _, err := svc.ConfirmRegistration(context.Background(), id); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestTokenServiceExpiredPurged(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	id := uuid.NewString()
	deleted := false

	store := &stubTokensStore{
		t: t,
		getFunc: func(_ context.Context, _ string) (domain.EphemeralToken, error) {
			return domain.EphemeralToken{
				ID:        id,
				Kind:      domain.TokenKindPasswordReset,
				UserID:    "user-1",
				ExpiresAt: now, // expires_at == now counts as expired
			}, nil
		},
		deleteFunc: func(_ context.Context, gotID string) error {
			if gotID != id {
				t.Fatalf("unexpected delete: %s", gotID)
			}
			deleted = true
			return nil
		},
	}

	svc := &TokenService{Store: store, Now: func() time.Time { return now }}

	if err := svc.CheckResetToken(context.Background(), id); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if !deleted {
		t.Fatalf("expired token must be purged")
	}
}

func TestTokenServiceResetPasswordHashes(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	id := uuid.NewString()

	store := &stubTokensStore{
		t: t,
		getFunc: func(_ context.Context, _ string) (domain.EphemeralToken, error) {
			return domain.EphemeralToken{
				ID:        id,
				Kind:      domain.TokenKindPasswordReset,
				UserID:    "user-1",
				ExpiresAt: now.Add(time.Minute),
			}, nil
		},
		consumeResetFunc: func(_ context.Context, gotID, passwordHash string) (string, error) {
			if gotID != id {
				t.Fatalf("unexpected consume: %s", gotID)
			}
			ok, err := auth.VerifyPassword(passwordHash, "my-new-password!")
			if err != nil || !ok {
				t.Fatalf("stored hash does not match new password: ok=%v err=%v", ok, err)
			}
			return "user-1", nil
		},
	}

	svc := &TokenService{Store: store, Now: func() time.Time { return now }}

	if err := svc.ResetPassword(context.Background(), id, "my-new-password!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
