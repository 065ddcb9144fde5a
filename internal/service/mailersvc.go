package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"noteserver/internal/config"
	"noteserver/internal/domain"
	"noteserver/internal/email"
)

type ChannelsStore interface {
	Pick(ctx context.Context, channelCount int, now, nextAvailable time.Time) (int, error)
}

// MailerService rotates sends across the configured SMTP channels. Each pick
// stamps a jittered cooldown on the chosen channel so no single provider
// account sees a burst of mail and flags us for spam.
type MailerService struct {
	Channels ChannelsStore
	Configs  []config.MailChannel
	FromName string
	Logger   *slog.Logger
	Now      func() time.Time

	// Send and RandIntN are seams for tests; nil means the real thing.
	Send     func(ch config.MailChannel, msg email.Message) error
	RandIntN func(n int) int
}

func (s *MailerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MailerService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *MailerService) randIntN(n int) int {
	if s.RandIntN != nil {
		return s.RandIntN(n)
	}
	return rand.IntN(n)
}

// cooldown is 5-10 whole minutes plus 0-59 seconds. The jitter keeps the
// channels from lining up and bursting in sync.
func (s *MailerService) cooldown() time.Duration {
	minutes := time.Duration(5+s.randIntN(6)) * time.Minute
	seconds := time.Duration(s.randIntN(60)) * time.Second
	return minutes + seconds
}

// PickChannel reserves the next channel and stamps its cooldown. Fails with
// ChannelBusyError when every channel is still cooling down.
func (s *MailerService) PickChannel(ctx context.Context) (int, error) {
	now := s.now()
	return s.Channels.Pick(ctx, len(s.Configs), now, now.Add(s.cooldown()))
}

// Deliver sends msg through channel start, falling through to the remaining
// channels in index order on transport failure. When every attempt fails the
// message is lost and ErrAllChannelsFailed is returned.
func (s *MailerService) Deliver(start int, msg email.Message) error {
	if msg.FromName == "" {
		msg.FromName = s.FromName
	}
	send := s.Send
	if send == nil {
		send = email.Send
	}

	for i := start; i < len(s.Configs); i++ {
		if err := send(s.Configs[i], msg); err != nil {
			s.logger().Warn("mail send failed", "channel", i, "to", msg.ToEmail, "err", err)
			continue
		}
		return nil
	}
	return domain.ErrAllChannelsFailed
}
