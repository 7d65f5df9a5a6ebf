// Package notify sends transactional e-mail.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"littletimes/internal/config"
	"littletimes/internal/middleware"
	"littletimes/internal/observability"
)

// DefaultFrom is used when no sender address is configured.
const DefaultFrom = "onboarding@resend.dev"

// ErrNotConfigured is returned when no transport can deliver mail.
var ErrNotConfigured = errors.New("mail transport is not configured")

// Message is a plain-text e-mail.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Transport() string
}

// FromConfig picks Resend when an API key is set, then SMTP, then a mailer
// that only logs. The last one is never used in production.
func FromConfig(cfg *config.Config) Mailer {
	switch {
	case strings.TrimSpace(cfg.ResendAPIKey) != "":
		return NewResendMailer(cfg.ResendAPIBase, cfg.ResendAPIKey, nil)
	case strings.TrimSpace(cfg.SMTPHost) != "":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	case !cfg.IsProduction():
		return LogMailer{}
	}
	return nil
}

// Send delivers msg through m and records the result.
func Send(ctx context.Context, m Mailer, msg Message) error {
	if m == nil {
		return ErrNotConfigured
	}
	if msg.From == "" {
		msg.From = DefaultFrom
	}
	err := m.Send(ctx, msg)
	observability.EmailsSent.WithLabelValues(m.Transport(), observability.ResultLabel(err)).Inc()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "email delivery failed",
			slog.String("transport", m.Transport()),
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// LogMailer writes messages to the application log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	middleware.Logger.InfoContext(ctx, "email (not sent)",
		slog.String("to", strings.Join(msg.To, ",")),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return nil
}

func (LogMailer) Transport() string { return "log" }
