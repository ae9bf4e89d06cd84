package email

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// ConsoleSender logs messages instead of sending them
type ConsoleSender struct {
	from   string
	logger zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewConsoleSender creates a ConsoleSender
func NewConsoleSender(fromName, fromEmail string, logger zerolog.Logger) *ConsoleSender {
	return &ConsoleSender{
		from:   fromName + " <" + fromEmail + ">",
		logger: logger,
	}
}

// Send logs the message
func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	s.logger.Info().
		Str("from", s.from).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("Email (console driver)")

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages sent so far
func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
