package mailer

import (
	"context"
	"fmt"

	mail "gopkg.in/mail.v2"

	"github.com/spec-kit/signup-forms/internal/config"
)

type smtpSender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	sender smtpSender
	from   string
}

// NewSMTPMailer builds a mailer for the configured relay.
func NewSMTPMailer(cfg config.NotificationConfig) *SMTPMailer {
	return &SMTPMailer{
		sender: mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.EmailFrom,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if err := validate(email); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	if email.Text != "" {
		msg.SetBody("text/plain", email.Text)
		msg.AddAlternative("text/html", email.HTML)
	} else {
		msg.SetBody("text/html", email.HTML)
	}

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
