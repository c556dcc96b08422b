// Package mailer sends application email over SMTP (Mailpit locally, a
// relay such as SES in production). It is used for account email only;
// task-assignment notifications go through the notifier package instead.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Email is one outbound message. TextBody is required; HTMLBody, when
// set, is sent as a multipart alternative.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer holds SMTP connection settings.
type Mailer struct {
	host     string
	port     int
	user     string
	pass     string
	from     string
	fromName string
	log      *zap.Logger
}

// New builds a Mailer. user/pass may be empty for unauthenticated relays
// (e.g. Mailpit on localhost).
func New(host string, port int, user, pass, from, fromName string, logger *zap.Logger) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
		from:     from,
		fromName: fromName,
		log:      logger,
	}
}

// Send delivers one email synchronously.
func (m *Mailer) Send(e Email) error {
	if e.To == "" {
		return fmt.Errorf("email has no recipient")
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	msg := m.buildMessage(e)
	if err := smtp.SendMail(addr, auth, m.from, []string{e.To}, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", e.To, err)
	}

	m.log.Info("email sent",
		zap.String("to", e.To),
		zap.String("subject", e.Subject))
	return nil
}

const mimeBoundary = "obratrack-alt-boundary"

func (m *Mailer) buildMessage(e Email) []byte {
	var b strings.Builder

	from := m.from
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.from)
	}

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + e.To + "\r\n")
	b.WriteString("Subject: " + e.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	if e.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(e.TextBody + "\r\n")
		return []byte(b.String())
	}

	b.WriteString("Content-Type: multipart/alternative; boundary=\"" + mimeBoundary + "\"\r\n\r\n")
	b.WriteString("--" + mimeBoundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(e.TextBody + "\r\n")
	b.WriteString("--" + mimeBoundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(e.HTMLBody + "\r\n")
	b.WriteString("--" + mimeBoundary + "--\r\n")
	return []byte(b.String())
}
