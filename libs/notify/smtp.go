package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender sends via an unauthenticated relay (Mailpit in development).
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@salonqueue.local"
	}
	return &SMTPSender{
		addr: strings.TrimSpace(host) + ":" + strings.TrimSpace(port),
		from: from,
	}
}

func (s *SMTPSender) Provider() string { return "smtp" }

// Send ignores ctx; net/smtp has no context support and the relay is local.
func (s *SMTPSender) Send(_ context.Context, msg Message) (string, error) {
	if err := smtp.SendMail(s.addr, nil, s.from, []string{msg.To}, buildMessage(s.from, msg)); err != nil {
		return "", err
	}
	return "", nil
}

func buildMessage(from string, msg Message) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, msg.To, msg.Subject, strings.ReplaceAll(msg.Text, "\n", "\r\n"),
	))
}

// LogSender only logs; used when no provider is configured.
type LogSender struct {
	Log func(msg string, args ...any)
}

func (s LogSender) Provider() string { return "log" }

func (s LogSender) Send(_ context.Context, msg Message) (string, error) {
	if s.Log != nil {
		s.Log("email not delivered, no provider configured", "to", msg.To, "subject", msg.Subject)
	}
	return "", nil
}
