// Package smtpmailer implements lead.MailSender over SMTP using gomail.
package smtpmailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP transport settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address, e.g. "営業担当 <sales@logimarket.jp>".
	From string
}

// Sender delivers outreach mail through a single SMTP account. One dialer
// per send keeps connections short-lived; at 3 seconds between sends there
// is nothing to gain from pooling.
type Sender struct {
	cfg Config
}

// New creates a Sender.
func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send delivers one plain-text message. Any transport-level failure is
// returned as-is; the dispatcher treats all failure causes uniformly.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send canceled: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
