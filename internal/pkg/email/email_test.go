package email

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    interface{}
		wantErr bool
	}{
		{name: "default is console", cfg: Config{}, want: &ConsoleSender{}},
		{name: "smtp", cfg: Config{Driver: "smtp"}, want: &SMTPSender{}},
		{name: "sendgrid", cfg: Config{Driver: "sendgrid", SendGridAPIKey: "SG.key"}, want: &SendGridSender{}},
		{name: "sendgrid without key", cfg: Config{Driver: "sendgrid"}, wantErr: true},
		{name: "unknown", cfg: Config{Driver: "pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSender(tt.cfg, zerolog.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestConsoleSender(t *testing.T) {
	s := NewConsoleSender("Classroom", "noreply@classroom.local", zerolog.Nop())

	err := s.Send(context.Background(), Message{To: "a@b.c", Subject: "Graded", Text: "You got 9/10"})
	require.NoError(t, err)
	assert.Error(t, s.Send(context.Background(), Message{Subject: "no recipient", Text: "x"}))
	assert.Error(t, s.Send(context.Background(), Message{To: "a@b.c"}))

	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Graded", sent[0].Subject)
}

func TestSMTPCompose(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{FromName: "Classroom", FromEmail: "noreply@classroom.local"}, zerolog.Nop())
	raw := string(s.compose(Message{To: "a@b.c", Subject: "Hi", Text: "plain", HTML: "<p>html</p>"}))

	assert.True(t, strings.HasPrefix(raw, "From: Classroom <noreply@classroom.local>\r\n"))
	assert.Contains(t, raw, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(raw, "<p>html</p>"))
}

func TestSMTPSender_NoCredentialsIsNoop(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25}, zerolog.Nop())
	assert.NoError(t, s.Send(context.Background(), Message{To: "a@b.c", Text: "x"}))
}

func TestSendGridPrepare(t *testing.T) {
	s := NewSendGridSender("SG.key", "Classroom", "noreply@classroom.local", zerolog.Nop())
	m := s.prepare(Message{To: "a@b.c", ToName: "Ada", Subject: "Hi", Text: "plain"})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "Hi", m.Personalizations[0].Subject)
	assert.Equal(t, "a@b.c", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
