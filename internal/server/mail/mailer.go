// Package mail delivers password-reset confirmation tokens over SMTP.
// Delivery is best-effort: callers log failures but never fail the reset
// request because of them.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/authgate/internal/server/config"
)

// Mailer sends the confirmation token for a pending password reset.
type Mailer interface {
	SendConfirmationEmail(ctx context.Context, email, confirmationToken string) error
}

// SMTPMailer sends HTML mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	cfg *config.Config
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// confirmationURL builds the link the user clicks to confirm the password
// change, pointing at the public confirmation endpoint.
func (m *SMTPMailer) confirmationURL(email, confirmationToken string) string {
	base := strings.TrimRight(m.cfg.AppBaseURL, "/")
	return fmt.Sprintf("%s/confirm-change-password/%s?email=%s", base, confirmationToken, url.QueryEscape(email))
}

func (m *SMTPMailer) SendConfirmationEmail(ctx context.Context, email, confirmationToken string) error {
	subject := "Password Change Request"
	link := m.confirmationURL(email, confirmationToken)
	body := fmt.Sprintf(`
	<html>
	<body>
		<h2>Password Change Request</h2>
		<p>You have requested to change your password. To complete this process, please follow the link below:</p>
		<p><a href="%s">Confirm password change</a></p>
		<p>If the link does not work, copy this address into your browser:</p>
		<p>%s</p>
		<p>This link will expire in %s.</p>
		<p>If you didn't request this, please ignore this email.</p>
	</body>
	</html>
	`, link, link, m.cfg.ResetRequestTTL)

	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}

	headers := map[string]string{
		"From":         m.cfg.EmailFrom,
		"To":           email,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="utf-8"`,
	}

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n" + body)

	return smtp.SendMail(
		m.cfg.SMTPHost+":"+m.cfg.SMTPPort,
		auth,
		m.cfg.EmailFrom,
		[]string{email},
		[]byte(message.String()),
	)
}
