// Package mail is the portal's outgoing mail collaborator. The core hands
// it validated, size-truncated text; delivery is best effort and never
// retried here.
package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"qala.org/internal/obs"
)

// Mailer sends one message. The (ok, message) pair mirrors the portal's
// boundary convention; the caller decides whether to surface a failure.
type Mailer interface {
	Send(to, subject, body string) (bool, string)
}

// SMTPMailer delivers over SMTPS (implicit TLS, typically port 465).
type SMTPMailer struct {
	Host     string
	Port     int
	Sender   string
	Password string
}

// Send connects, authenticates and submits the message.
func (m *SMTPMailer) Send(to, subject, body string) (bool, string) {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.Host})
	if err != nil {
		return false, fmt.Sprintf("Mail Could Not Be Sent: %v", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		return false, fmt.Sprintf("Mail Could Not Be Sent: %v", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.Sender, m.Password, m.Host)
	if err := client.Auth(auth); err != nil {
		return false, fmt.Sprintf("Mail Could Not Be Sent: %v", err)
	}
	if err := client.Mail(m.Sender); err != nil {
		return false, fmt.Sprintf("Mail Could Not Be Sent: %v", err)
	}
	if err := client.Rcpt(to); err != nil {
		return false, fmt.Sprintf("Mail Could Not Be Sent: %v", err)
	}
	w, err := client.Data()
	if err != nil {
		return false, fmt.Sprintf("Mail Could Not Be Sent: %v", err)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.Sender, to, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return false, fmt.Sprintf("Mail Could Not Be Sent: %v", err)
	}
	if err := w.Close(); err != nil {
		return false, fmt.Sprintf("Mail Could Not Be Sent: %v", err)
	}
	_ = client.Quit()
	return true, "Email successfully sent."
}

// LogMailer records messages on the shared logger instead of delivering
// them. Used in tests and when no SMTP credentials are configured.
type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) (bool, string) {
	obs.Trace("mail.logged", map[string]any{
		"to":      to,
		"subject": subject,
		"bytes":   len(body),
	})
	return true, "Email successfully sent."
}
