// Package notify renders appointment emails and hands them to a delivery
// provider. Delivery is best effort: callers log failures and move on.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	"text/template"
	"time"
)

type Template string

const (
	TemplateConfirmation Template = "confirmation"
	TemplateReminder     Template = "reminder"
)

func (t Template) Valid() bool {
	return t == TemplateConfirmation || t == TemplateReminder
}

// Payload is everything a template may show. Date and Time are preformatted
// in the business's timezone.
type Payload struct {
	CustomerName  string `json:"customer_name"`
	BusinessName  string `json:"business_name"`
	ServiceName   string `json:"service_name"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	BusinessPhone string `json:"business_phone"`
	Address       string `json:"address,omitempty"`
}

// Message is a rendered email ready for a Sender.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message. ID is the provider's message id when it has one.
type Sender interface {
	Send(ctx context.Context, msg Message) (id string, err error)
	Provider() string
}

var ErrNoRecipient = errors.New("notify: recipient email is empty")

//go:embed templates/*
var templateFS embed.FS

var (
	textTemplates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))
	htmlLayout    = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/layout.html"))
)

// FormatWhen renders an instant the way emails show it, e.g.
// "Monday, January 2, 2006" and "03:04 PM".
func FormatWhen(t time.Time, loc *time.Location) (date, clock string) {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("Monday, January 2, 2006"), t.Format("03:04 PM")
}

func Subject(tmpl Template, businessName string) string {
	if tmpl == TemplateReminder {
		return "Reminder: Your appointment tomorrow at " + businessName
	}
	return "Appointment Confirmed - " + businessName
}

// Render builds the message for tmpl addressed to to.
func Render(tmpl Template, to string, p Payload) (Message, error) {
	if !tmpl.Valid() {
		return Message{}, fmt.Errorf("notify: unknown template %q", tmpl)
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return Message{}, ErrNoRecipient
	}

	var text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, string(tmpl)+".txt", p); err != nil {
		return Message{}, err
	}

	heading, lead := "Appointment Confirmed", "Your appointment has been confirmed. Here are your details:"
	if tmpl == TemplateReminder {
		heading, lead = "Appointment Reminder", "This is a reminder about your appointment tomorrow:"
	}
	var html bytes.Buffer
	err := htmlLayout.Execute(&html, struct {
		Payload
		Heading string
		Lead    string
	}{p, heading, lead})
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: Subject(tmpl, p.BusinessName),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// Notifier renders and sends in one call.
type Notifier struct {
	sender Sender
	logger *slog.Logger
}

func NewNotifier(sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger}
}

func (n *Notifier) Provider() string { return n.sender.Provider() }

func (n *Notifier) Notify(ctx context.Context, tmpl Template, to string, p Payload) (string, error) {
	msg, err := Render(tmpl, to, p)
	if err != nil {
		return "", err
	}
	id, err := n.sender.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("%s: %w", n.sender.Provider(), err)
	}
	n.logger.Debug("email sent", "template", tmpl, "provider", n.sender.Provider(), "provider_id", id)
	return id, nil
}
