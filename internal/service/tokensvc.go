package service

import (
	"context"
	"errors"
	"time"

	"noteserver/internal/auth"
	"noteserver/internal/domain"

	"github.com/google/uuid"
)

type EphemeralTokensStore interface {
	Replace(ctx context.Context, t domain.EphemeralToken) error
	Get(ctx context.Context, id string) (domain.EphemeralToken, error)
	Delete(ctx context.Context, id string) error
	ConsumeVerification(ctx context.Context, id string) (string, error)
	ConsumeReset(ctx context.Context, id, passwordHash string) (string, error)
}

// TokenService drives the ephemeral token state machine: absent -> active ->
// consumed or expired -> absent. Tokens are single-use and time-boxed;
// expired ones are purged lazily on the first validation attempt.
type TokenService struct {
	Store           EphemeralTokensStore
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	Now             func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) ttl(kind domain.TokenKind) time.Duration {
	if kind == domain.TokenKindPasswordReset {
		return s.ResetTTL
	}
	return s.VerificationTTL
}

// Issue mints a fresh token of the given kind. Any live token of that kind
// for the user is replaced; the store does the swap in one transaction.
func (s *TokenService) Issue(ctx context.Context, kind domain.TokenKind, userID string) (domain.EphemeralToken, error) {
	now := s.now()
	t := domain.EphemeralToken{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl(kind)),
	}
	if err := s.Store.Replace(ctx, t); err != nil {
		return domain.EphemeralToken{}, err
	}
	return t, nil
}

// ConfirmRegistration consumes a verification token and enables its account.
// The delete and the enable commit together.
func (s *TokenService) ConfirmRegistration(ctx context.Context, tokenID string) (string, error) {
	if _, err := s.validate(ctx, domain.TokenKindVerification, tokenID); err != nil {
		return "", err
	}
	return s.Store.ConsumeVerification(ctx, tokenID)
}

// CheckResetToken validates a reset token without consuming it, so the reset
// form can be shown before the user picks a new password.
func (s *TokenService) CheckResetToken(ctx context.Context, tokenID string) error {
	_, err := s.validate(ctx, domain.TokenKindPasswordReset, tokenID)
	return err
}

// ResetPassword consumes a reset token and installs the new password in one
// transaction.
func (s *TokenService) ResetPassword(ctx context.Context, tokenID, newPassword string) error {
	if _, err := s.validate(ctx, domain.TokenKindPasswordReset, tokenID); err != nil {
		return err
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.Store.ConsumeReset(ctx, tokenID, passwordHash)
	return err
}

func (s *TokenService) validate(ctx context.Context, kind domain.TokenKind, tokenID string) (domain.EphemeralToken, error) {
	if _, err := uuid.Parse(tokenID); err != nil {
		return domain.EphemeralToken{}, domain.ErrTokenNotFound
	}

	t, err := s.Store.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.EphemeralToken{}, domain.ErrTokenNotFound
		}
		return domain.EphemeralToken{}, err
	}
	if t.Kind != kind {
		return domain.EphemeralToken{}, domain.ErrTokenNotFound
	}

	// expires_at <= now means expired; purge so later lookups see absent.
	if !t.ExpiresAt.After(s.now()) {
		if err := s.Store.Delete(ctx, tokenID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.EphemeralToken{}, err
		}
		return domain.EphemeralToken{}, domain.ErrTokenExpired
	}
	return t, nil
}
