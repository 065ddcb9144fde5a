package service

import (
	"context"
	"errors"
	"strings"

	"noteserver/internal/auth"
	"noteserver/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash string, roles []string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	UpdateProfile(ctx context.Context, userID, email, username string) (domain.User, error)
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
	DeleteUser(ctx context.Context, userID string) error
}

type SessionIssuer interface {
	Issue(email string, roles []string) (string, error)
}

// ChannelPicker reserves an outbound email channel. The pick happens on the
// request path so a ChannelBusy rejection reaches the caller with its
// retry-after, before any account row is written.
type ChannelPicker interface {
	PickChannel(ctx context.Context) (int, error)
}

// Notifier accepts a signal for asynchronous delivery. Token creation and
// the actual send happen off the request path.
type Notifier interface {
	RegistrationCompleted(user domain.User, channel int) error
	PasswordResetRequested(user domain.User, channel int) error
}

type AuthService struct {
	Users    UsersStore
	Sessions SessionIssuer
	Mailer   ChannelPicker
	Notifier Notifier
}

// Authenticate checks a login attempt. The enabled flag is checked before
// the password so a disabled account never reveals whether the password was
// right.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = normalizeEmail(email)

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if !u.Enabled {
		return domain.User{}, domain.ErrUserDisabled
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	return u.User, nil
}

// Login authenticates and returns the signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.Sessions.Issue(u.Email, u.Roles)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

// Register creates a disabled account and queues the verification email.
// Re-registering an email that never completed verification discards the
// stale account and starts over; a verified email is taken for good.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (domain.User, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)

	existing, err := s.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Enabled {
			return domain.User{}, domain.ErrEmailTaken
		}
		if err := s.Users.DeleteUser(ctx, existing.ID); err != nil {
			return domain.User{}, err
		}
	case !errors.Is(err, domain.ErrNotFound):
		return domain.User{}, err
	}

	channel, err := s.Mailer.PickChannel(ctx)
	if err != nil {
		return domain.User{}, err
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.Users.CreateUser(ctx, email, username, passwordHash, []string{domain.RoleUser})
	if err != nil {
		return domain.User{}, err
	}

	if err := s.Notifier.RegistrationCompleted(u, channel); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// ResendVerification queues a fresh verification email for a not-yet-enabled
// account. Issuing the new token invalidates the previous one.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.Users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u.Enabled {
		return domain.NewValidationError(map[string]string{"email": "account is already verified"})
	}

	channel, err := s.Mailer.PickChannel(ctx)
	if err != nil {
		return err
	}
	return s.Notifier.RegistrationCompleted(u.User, channel)
}

// RequestPasswordReset queues a reset email for an enabled account. The
// handler masks ErrNotFound and ErrUserDisabled so the endpoint does not
// reveal which addresses have accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.Users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if !u.Enabled {
		return domain.ErrUserDisabled
	}

	channel, err := s.Mailer.PickChannel(ctx)
	if err != nil {
		return err
	}
	return s.Notifier.PasswordResetRequested(u.User, channel)
}

// UserByEmail resolves the account behind a validated session identity.
func (s *AuthService) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if !u.Enabled {
		return domain.User{}, domain.ErrUserDisabled
	}
	return u.User, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
