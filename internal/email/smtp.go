package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"noteserver/internal/config"
)

type Message struct {
	FromName string
	ToEmail  string
	Subject  string
	TextBody string
}

// Send delivers msg through one configured channel. The channel's username
// authenticates the SMTP session and its From field becomes the envelope
// sender.
func Send(ch config.MailChannel, msg Message) error {
	addr := fmt.Sprintf("%s:%d", ch.Host, ch.Port)
	client, err := connect(ch, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if ch.Username != "" {
		auth := smtp.PlainAuth("", ch.Username, ch.Password, ch.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(ch.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := client.Rcpt(msg.ToEmail); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	from := ch.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, ch.From)
	}
	body := buildMessage(from, msg.ToEmail, msg.Subject, msg.TextBody)
	if _, err := writer.Write([]byte(body)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func connect(ch config.MailChannel, addr string) (*smtp.Client, error) {
	switch ch.TLSMode {
	case "tls":
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: ch.Host, MinVersion: tls.VersionTLS12})
		if err != nil {
			return nil, fmt.Errorf("smtp tls dial: %w", err)
		}
		client, err := smtp.NewClient(conn, ch.Host)
		if err != nil {
			return nil, fmt.Errorf("smtp client: %w", err)
		}
		return client, nil
	default:
		client, err := smtp.Dial(addr)
		if err != nil {
			return nil, fmt.Errorf("smtp dial: %w", err)
		}
		if ch.TLSMode != "none" {
			if err := client.StartTLS(&tls.Config{ServerName: ch.Host, MinVersion: tls.VersionTLS12}); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("smtp starttls: %w", err)
			}
		}
		return client, nil
	}
}

func buildMessage(from, to, subject, body string) string {
	lines := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	return strings.Join(lines, "\r\n")
}
