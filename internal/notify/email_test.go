package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captured struct {
	from string
	to   []string
	raw  string
}

func captureSender(out *[]captured) gomail.SendFunc {
	return func(from string, to []string, msg io.WriterTo) error {
		var buf bytes.Buffer
		if _, err := msg.WriteTo(&buf); err != nil {
			return err
		}
		*out = append(*out, captured{from: from, to: to, raw: buf.String()})
		return nil
	}
}

// flatten undoes quoted-printable soft breaks and '=' escapes.
func flatten(raw string) string {
	raw = strings.ReplaceAll(raw, "=\r\n", "")
	return strings.ReplaceAll(raw, "=3D", "=")
}

func testConfig() SMTPConfig {
	return SMTPConfig{Host: "smtp.example.com", Port: 587, User: "u", Pass: "p", From: "noreply@example.com"}
}

func TestSendVerification(t *testing.T) {
	var sent []captured
	n := NewEmailNotifier(testConfig(), "http://localhost:8080/", slog.New(slog.NewTextHandler(io.Discard, nil)), WithSender(captureSender(&sent)))

	err := n.SendVerification(context.Background(), Recipient{Email: "a@b.com", FirstName: "<Ada>"}, "tok.en.value")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "noreply@example.com", sent[0].from)
	assert.Equal(t, []string{"a@b.com"}, sent[0].to)
	assert.Contains(t, sent[0].raw, "One last step to complete your registration")
	body := flatten(sent[0].raw)
	assert.Contains(t, body, "http://localhost:8080/verification-service/email-verification.html?token=tok.en.value")
	assert.Contains(t, body, "Hi &lt;Ada&gt;", "names are escaped in html")
}

func TestSendPasswordReset(t *testing.T) {
	var sent []captured
	n := NewEmailNotifier(testConfig(), "https://app.example.com", nil, WithSender(captureSender(&sent)))

	require.NoError(t, n.SendPasswordReset(context.Background(), Recipient{Email: "a@b.com", FirstName: "Ada"}, "abc"))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].raw, "Password reset request")
	assert.Contains(t, flatten(sent[0].raw), "https://app.example.com/verification-service/password-reset.html?token=abc")
}

func TestSendErrors(t *testing.T) {
	n := NewEmailNotifier(SMTPConfig{}, "http://x", nil)
	assert.Error(t, n.SendVerification(context.Background(), Recipient{Email: "a@b.com"}, "t"))

	failing := gomail.SendFunc(func(string, []string, io.WriterTo) error { return errors.New("smtp down") })
	n = NewEmailNotifier(testConfig(), "http://x", nil, WithSender(failing))
	err := n.SendPasswordReset(context.Background(), Recipient{Email: "a@b.com"}, "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")

	assert.Error(t, n.SendPasswordReset(context.Background(), Recipient{}, "t"))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, n.SendVerification(context.Background(), Recipient{Email: "a@b.com"}, "secret-token"))
	require.NoError(t, n.SendPasswordReset(context.Background(), Recipient{Email: "a@b.com"}, "secret-token"))
	assert.Contains(t, buf.String(), "a@b.com")
	assert.NotContains(t, buf.String(), "secret-token")
}
