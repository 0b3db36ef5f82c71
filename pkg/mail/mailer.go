// Package mail delivers account-activation email for provisioned users.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends an activation email carrying the user's activation link.
// The invitation dispatcher is the only caller; delivery runs after the
// provisioning transaction committed, so a failure here never surfaces to
// the provisioning request.
type Mailer interface {
	SendActivation(ctx context.Context, email, token string) error
}

// SMTPMailer sends activation mail through a plain SMTP relay.
type SMTPMailer struct {
	addr    string
	from    string
	auth    smtp.Auth
	baseURL string
}

// NewSMTPMailer creates a Mailer against the given relay. username may be
// empty for relays that accept unauthenticated local delivery.
func NewSMTPMailer(host string, port int, username, password, from, baseURL string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr:    fmt.Sprintf("%s:%d", host, port),
		from:    from,
		auth:    auth,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SendActivation sends the activation link for the token.
func (m *SMTPMailer) SendActivation(ctx context.Context, email, token string) error {
	link := fmt.Sprintf("%s/account-activation/%s", m.baseURL, token)
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + email,
		"Subject: Activate your account",
		"",
		"You have been added to a project. Activate your account here:",
		"",
		link,
		"",
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send activation mail to %s: %w", email, err)
	}
	return nil
}

// LogMailer logs activation links instead of sending them. Used in
// development and tests when no relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a Mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mailer")}
}

func (m *LogMailer) SendActivation(ctx context.Context, email, token string) error {
	m.logger.Info("Activation mail (log only)",
		zap.String("email", email),
		zap.String("token", token))
	return nil
}
