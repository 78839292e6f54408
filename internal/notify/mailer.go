// Package notify emails users a summary of their previous month.
package notify

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/expensemanager/internal/config"
)

// Mailer delivers one plain-text message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg config.SMTPConfig
	log zerolog.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log.With().Str("component", "mailer").Logger()}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	e := email.NewEmail()
	e.From = m.cfg.Sender
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := e.Send(addr, auth); err != nil {
		m.log.Error().Err(err).Str("to", to).Msg("failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}
