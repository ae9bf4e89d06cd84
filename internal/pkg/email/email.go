// Package email sends transactional mail through a pluggable Sender.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Driver names accepted in configuration
const (
	DriverConsole  = "console"
	DriverSMTP     = "smtp"
	DriverSendGrid = "sendgrid"
)

// Message is a single outgoing email
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures a sender
type Config struct {
	Driver         string
	FromName       string
	FromEmail      string
	SendGridAPIKey string
	SMTP           SMTPConfig
}

// NewSender builds the sender named by cfg.Driver
func NewSender(cfg Config, logger zerolog.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverConsole:
		return NewConsoleSender(cfg.FromName, cfg.FromEmail, logger), nil
	case DriverSMTP:
		cfg.SMTP.FromName, cfg.SMTP.FromEmail = cfg.FromName, cfg.FromEmail
		return NewSMTPSender(cfg.SMTP, logger), nil
	case DriverSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid driver requires an API key")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromEmail, logger), nil
	default:
		return nil, fmt.Errorf("unknown email driver %q", cfg.Driver)
	}
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("email message has no recipient")
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("email message has no content")
	}
	return nil
}
