// Package mailer provides the outbound email transports. SMTP via gomail
// is the default; AWS SES can be enabled instead for production volume.
package mailer

import (
	"context"

	"github.com/threesixtyvue/outreach/internal/config"
)

// Message is a fully rendered email ready for transport.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// Sender delivers a rendered message and returns the transport message ID.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// New selects a transport from config: SES when enabled, SMTP otherwise.
func New(cfg *config.Config) (Sender, error) {
	if cfg.SES.Enabled {
		return NewSESSender(cfg.SES)
	}
	return NewSMTPSender(cfg.SMTP), nil
}
