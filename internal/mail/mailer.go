// Package mail sends transactional email. Callers treat delivery as
// best-effort; failures are logged and never surfaced to clients.
package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/vasiliy-maslov/shophub/internal/config"
)

type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, htmlBody)

	addr := s.cfg.Host + ":" + s.cfg.Port
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mail: failed to send to %s: %w", to, err)
	}
	return nil
}
