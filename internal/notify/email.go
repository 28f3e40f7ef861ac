package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Configured reports whether enough is set to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// EmailNotifier sends HTML emails with a plain text alternative over SMTP.
type EmailNotifier struct {
	cfg     SMTPConfig
	baseURL string
	logger  *slog.Logger
	deliver func(*gomail.Message) error
}

// EmailOption configures EmailNotifier.
type EmailOption func(*EmailNotifier)

// WithSender routes messages through s instead of dialing the SMTP server.
func WithSender(s gomail.Sender) EmailOption {
	return func(n *EmailNotifier) {
		n.deliver = func(m *gomail.Message) error { return gomail.Send(s, m) }
	}
}

// NewEmailNotifier returns an SMTP notifier. Links in emails point at baseURL.
func NewEmailNotifier(cfg SMTPConfig, baseURL string, logger *slog.Logger, opts ...EmailOption) *EmailNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &EmailNotifier{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
	n.deliver = func(m *gomail.Message) error {
		return gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass).DialAndSend(m)
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var (
	verificationHTML = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h1>Please verify your email address</h1>
  <p>Hi {{.Name}}, thank you for registering with our mobile app. To complete the registration
  process and be able to log in, click on the following link:</p>
  <p><a href="{{.Link}}">Final step to complete your registration</a></p>
  <p>Thank you! And we are waiting for you inside!</p>
</body>
</html>`))

	resetHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h1>A request to reset your password</h1>
  <p>Hi {{.Name}}!</p>
  <p>Someone has requested to reset your password with our project. If it were not you,
  please ignore it. Otherwise please click on the link below to set a new password:</p>
  <p><a href="{{.Link}}">Click this link to reset password</a></p>
  <p>Thank you!</p>
</body>
</html>`))
)

type emailData struct {
	Name string
	Link string
}

func (n *EmailNotifier) SendVerification(ctx context.Context, to Recipient, token string) error {
	link := n.link("/verification-service/email-verification.html", token)
	text := fmt.Sprintf("Please verify your email address. Hi %s, open the following URL to complete your registration: %s", to.FirstName, link)
	return n.send(ctx, to, "One last step to complete your registration", verificationHTML, text, link)
}

func (n *EmailNotifier) SendPasswordReset(ctx context.Context, to Recipient, token string) error {
	link := n.link("/verification-service/password-reset.html", token)
	text := fmt.Sprintf("A request to reset your password. Hi %s! Open the following URL to set a new password: %s", to.FirstName, link)
	return n.send(ctx, to, "Password reset request", resetHTML, text, link)
}

func (n *EmailNotifier) link(path, token string) string {
	return n.baseURL + path + "?token=" + url.QueryEscape(token)
}

func (n *EmailNotifier) send(ctx context.Context, to Recipient, subject string, tpl *template.Template, text, link string) error {
	if !n.cfg.Configured() {
		return errors.New("notify: smtp is not configured")
	}
	if strings.TrimSpace(to.Email) == "" {
		return errors.New("notify: empty recipient")
	}

	var body bytes.Buffer
	if err := tpl.Execute(&body, emailData{Name: to.FirstName, Link: link}); err != nil {
		return fmt.Errorf("notify: render %s: %w", tpl.Name(), err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", to.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", body.String())

	if err := n.deliver(m); err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	n.logger.InfoContext(ctx, "email sent", slog.String("to", to.Email), slog.String("template", tpl.Name()))
	return nil
}
