package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/threesixtyvue/outreach/internal/config"
)

// SMTPSender sends email over SMTP using gomail.
type SMTPSender struct {
	dialer    *gomail.Dialer
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTP sender from config.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}
}

// Send delivers a single email over SMTP. SMTP has no server-assigned
// receipt, so the Message-ID header we set is returned as the message ID.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	domain := "localhost"
	if at := strings.LastIndex(s.fromEmail, "@"); at >= 0 {
		domain = s.fromEmail[at+1:]
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.fromEmail, s.fromName))
	if msg.ToName != "" {
		m.SetHeader("To", m.FormatAddress(msg.To, msg.ToName))
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", msg.HTMLBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return messageID, nil
}
