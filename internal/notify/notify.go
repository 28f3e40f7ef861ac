// Package notify delivers account emails.
package notify

import (
	"context"
	"log/slog"
)

// Recipient identifies who receives a message.
type Recipient struct {
	Email     string
	FirstName string
}

// Notifier sends account lifecycle emails.
type Notifier interface {
	SendVerification(ctx context.Context, to Recipient, token string) error
	SendPasswordReset(ctx context.Context, to Recipient, token string) error
}

// LogNotifier only logs. Used when SMTP is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that writes to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerification(ctx context.Context, to Recipient, _ string) error {
	n.logger.InfoContext(ctx, "email delivery disabled, verification email skipped", slog.String("to", to.Email))
	return nil
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, to Recipient, _ string) error {
	n.logger.InfoContext(ctx, "email delivery disabled, password reset email skipped", slog.String("to", to.Email))
	return nil
}
