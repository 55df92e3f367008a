package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/config"
)

// ErrNoRecipient is returned when an email has no destination address.
var ErrNoRecipient = errors.New("email recipient is required")

// Email is a rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// New selects the transport named by cfg.Provider: "ses", "smtp" or "log".
func New(ctx context.Context, cfg config.NotificationConfig, logger *zap.Logger) (Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ses":
		return NewSESMailerFromConfig(ctx, cfg)
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, errors.New("SMTP_HOST is required for the smtp mail provider")
		}
		return NewSMTPMailer(cfg), nil
	case "", "log":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

func validate(email Email) error {
	if strings.TrimSpace(email.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	if err := validate(email); err != nil {
		return err
	}
	m.logger.Info("email (log transport)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("html_bytes", len(email.HTML)),
	)
	return nil
}
