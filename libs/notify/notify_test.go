package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePayload = Payload{
	CustomerName:  "Dana",
	BusinessName:  "Shear Joy",
	ServiceName:   "Haircut",
	Date:          "Tuesday, March 3, 2026",
	Time:          "10:30 AM",
	BusinessPhone: "+1 650-253-0000",
}

func TestRenderConfirmation(t *testing.T) {
	msg, err := Render(TemplateConfirmation, "dana@example.com", samplePayload)
	require.NoError(t, err)
	assert.Equal(t, "Appointment Confirmed - Shear Joy", msg.Subject)
	assert.Contains(t, msg.Text, "Hi Dana,")
	assert.Contains(t, msg.Text, "Tuesday, March 3, 2026")
	assert.NotContains(t, msg.Text, "Address:")
	assert.Contains(t, msg.HTML, "Appointment Confirmed")
}

func TestRenderReminderWithAddressEscapesHTML(t *testing.T) {
	p := samplePayload
	p.Address = "1 <Main> St"
	msg, err := Render(TemplateReminder, "dana@example.com", p)
	require.NoError(t, err)
	assert.Equal(t, "Reminder: Your appointment tomorrow at Shear Joy", msg.Subject)
	assert.Contains(t, msg.Text, "Address:  1 <Main> St")
	assert.Contains(t, msg.HTML, "1 &lt;Main&gt; St")
}

func TestRenderRejects(t *testing.T) {
	_, err := Render(TemplateReminder, " ", samplePayload)
	assert.ErrorIs(t, err, ErrNoRecipient)
	_, err = Render(Template("welcome"), "a@b.c", samplePayload)
	assert.Error(t, err)
}

func TestFormatWhen(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	date, clock := FormatWhen(time.Date(2026, 3, 3, 15, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, "Tuesday, March 3, 2026", date)
	assert.Equal(t, "10:30 AM", clock)
}

func TestResendSender(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	sender := NewResendSender(srv.URL, "key", "Salon <a@b.c>")
	n := NewNotifier(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))
	id, err := n.Notify(context.Background(), TemplateConfirmation, "dana@example.com", samplePayload)
	require.NoError(t, err)
	assert.Equal(t, "em_1", id)
	assert.Equal(t, []string{"dana@example.com"}, got.To)
	assert.Equal(t, "Appointment Confirmed - Shear Joy", got.Subject)
}

func TestResendSenderSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"bad from"}`))
	}))
	defer srv.Close()

	_, err := NewResendSender(srv.URL, "key", "x").Send(context.Background(), Message{To: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad from")
}

type failingSender struct{}

func (failingSender) Provider() string { return "fake" }
func (failingSender) Send(context.Context, Message) (string, error) {
	return "", errors.New("down")
}

func TestNotifierWrapsProvider(t *testing.T) {
	n := NewNotifier(failingSender{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := n.Notify(context.Background(), TemplateReminder, "a@b.c", samplePayload)
	assert.EqualError(t, err, "fake: down")
}
