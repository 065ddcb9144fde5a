package service

import (
	"context"
	"strings"

	"noteserver/internal/auth"
	"noteserver/internal/domain"
)

type ProfileService struct {
	Users UsersStore
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID, email, username string) (domain.User, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	return s.Users.UpdateProfile(ctx, userID, email, username)
}

// ChangePassword requires the current password; this is the authenticated
// path, unlike the token-driven reset flow.
func (s *ProfileService) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	u, err := s.Users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, currentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Users.SetPasswordHash(ctx, u.ID, passwordHash)
}

// DeleteAccount removes the user; notes and ephemeral tokens cascade.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	return s.Users.DeleteUser(ctx, userID)
}
