package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"noteserver/internal/domain"
	"noteserver/internal/email"
)

type EphemeralIssuer interface {
	Issue(ctx context.Context, kind domain.TokenKind, userID string) (domain.EphemeralToken, error)
}

type Deliverer interface {
	Deliver(start int, msg email.Message) error
}

type notification struct {
	kind    domain.TokenKind
	user    domain.User
	channel int
}

// NotifierService turns registration and reset signals into outbound email.
// Handlers enqueue and return; workers issue the ephemeral token, build the
// link and deliver. A message whose every channel attempt fails is dropped
// and logged; there is no persisted retry queue.
type NotifierService struct {
	Tokens    EphemeralIssuer
	Mailer    Deliverer
	BaseURL   string
	Logger    *slog.Logger
	QueueSize int

	mu      sync.Mutex
	queue   chan notification
	stopped bool
	wg      sync.WaitGroup
}

var errNotifierStopped = errors.New("notifier not running")

func (s *NotifierService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Start launches the worker pool. Must be called before any enqueue.
func (s *NotifierService) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	size := s.QueueSize
	if size < 1 {
		size = 64
	}
	s.mu.Lock()
	s.queue = make(chan notification, size)
	s.stopped = false
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case n, ok := <-s.queue:
					if !ok {
						return
					}
					s.dispatch(ctx, n)
				}
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight dispatches to finish. Any
// enqueue from then on reports the notifier as stopped instead of racing the
// closed channel.
func (s *NotifierService) Stop() {
	s.mu.Lock()
	if s.queue == nil || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.queue)
	s.wg.Wait()
}

func (s *NotifierService) RegistrationCompleted(user domain.User, channel int) error {
	return s.enqueue(notification{kind: domain.TokenKindVerification, user: user, channel: channel})
}

func (s *NotifierService) PasswordResetRequested(user domain.User, channel int) error {
	return s.enqueue(notification{kind: domain.TokenKindPasswordReset, user: user, channel: channel})
}

func (s *NotifierService) enqueue(n notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil || s.stopped {
		return errNotifierStopped
	}
	select {
	case s.queue <- n:
		return nil
	default:
		return errors.New("notification queue full")
	}
}

func (s *NotifierService) dispatch(ctx context.Context, n notification) {
	t, err := s.Tokens.Issue(ctx, n.kind, n.user.ID)
	if err != nil {
		s.logger().Error("notify: issue token failed", "kind", n.kind, "user_id", n.user.ID, "err", err)
		return
	}

	var msg email.Message
	switch n.kind {
	case domain.TokenKindPasswordReset:
		msg = email.Message{
			ToEmail:  n.user.Email,
			Subject:  "Reset your password",
			TextBody: "Click the link to reset your password:\n\n" + s.BaseURL + "/verifyResetPassword?token=" + t.ID,
		}
	default:
		msg = email.Message{
			ToEmail:  n.user.Email,
			Subject:  "Account verification email",
			TextBody: "Click the link to verify your account:\n\n" + s.BaseURL + "/verifyRegistration?token=" + t.ID,
		}
	}

	if err := s.Mailer.Deliver(n.channel, msg); err != nil {
		s.logger().Error("notify: delivery failed, message dropped", "kind", n.kind, "user_id", n.user.ID, "err", err)
	}
}
