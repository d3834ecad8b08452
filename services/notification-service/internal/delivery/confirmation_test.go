package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/salonqueue/libs/events"
	"github.com/md-rashed-zaman/salonqueue/libs/kafkax"
	"github.com/md-rashed-zaman/salonqueue/libs/notify"
	"github.com/md-rashed-zaman/salonqueue/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	err  error
	sent []string
}

func (f *fakeNotifier) Provider() string { return "fake" }

func (f *fakeNotifier) Notify(_ context.Context, tmpl notify.Template, to string, p notify.Payload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, string(tmpl)+":"+to+":"+p.BusinessName)
	return "msg-1", nil
}

type memRecorder struct {
	rows []storage.Notification
	err  error
}

func (m *memRecorder) Insert(_ context.Context, n storage.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, n)
	return nil
}

func bookedMessage(t *testing.T, evt events.Booked) kafka.Message {
	t.Helper()
	body, err := json.Marshal(evt)
	require.NoError(t, err)
	return kafka.Message{
		Topic:   events.AppointmentBooked,
		Value:   body,
		Headers: kafkax.EventMeta{EventID: "e1", EventType: events.AppointmentBooked, BusinessID: evt.BusinessID}.Headers(),
	}
}

func booked() events.Booked {
	return events.Booked{
		AppointmentID:    "a1",
		BusinessID:       "b1",
		CustomerEmail:    "ana@example.com",
		SendConfirmation: true,
		Notification:     notify.Payload{CustomerName: "Ana", BusinessName: "Shear Joy"},
	}
}

func newConfirmations(n *fakeNotifier, r *memRecorder) *Confirmations {
	return NewConfirmations(n, r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConfirmationSent(t *testing.T) {
	n, r := &fakeNotifier{}, &memRecorder{}
	require.NoError(t, newConfirmations(n, r).Handle(context.Background(), bookedMessage(t, booked())))

	assert.Equal(t, []string{"confirmation:ana@example.com:Shear Joy"}, n.sent)
	require.Len(t, r.rows, 1)
	assert.Equal(t, storage.Notification{
		AppointmentID: "a1",
		BusinessID:    "b1",
		Template:      "confirmation",
		Recipient:     "ana@example.com",
		Provider:      "fake",
		ProviderID:    "msg-1",
		Status:        storage.StatusSent,
	}, r.rows[0])
}

func TestConfirmationFailureIsRecordedNotReturned(t *testing.T) {
	n, r := &fakeNotifier{err: errors.New("resend: 422")}, &memRecorder{}
	require.NoError(t, newConfirmations(n, r).Handle(context.Background(), bookedMessage(t, booked())))

	require.Len(t, r.rows, 1)
	assert.Equal(t, storage.StatusFailed, r.rows[0].Status)
	assert.Equal(t, "resend: 422", r.rows[0].Error)
}

func TestConfirmationSkipped(t *testing.T) {
	noEmail := booked()
	noEmail.CustomerEmail = ""
	disabled := booked()
	disabled.SendConfirmation = false

	for name, evt := range map[string]events.Booked{"no email": noEmail, "disabled": disabled} {
		t.Run(name, func(t *testing.T) {
			n, r := &fakeNotifier{}, &memRecorder{}
			require.NoError(t, newConfirmations(n, r).Handle(context.Background(), bookedMessage(t, evt)))
			assert.Empty(t, n.sent)
			require.Len(t, r.rows, 1)
			assert.Equal(t, storage.StatusSkipped, r.rows[0].Status)
		})
	}
}

func TestConfirmationIgnoresOtherEventsAndBadPayloads(t *testing.T) {
	n, r := &fakeNotifier{}, &memRecorder{}
	c := newConfirmations(n, r)

	other := bookedMessage(t, booked())
	other.Headers = kafkax.EventMeta{EventID: "e2", EventType: events.AppointmentStatusChanged}.Headers()
	require.NoError(t, c.Handle(context.Background(), other))

	bad := bookedMessage(t, booked())
	bad.Value = []byte("{")
	require.NoError(t, c.Handle(context.Background(), bad))

	assert.Empty(t, n.sent)
	assert.Empty(t, r.rows)
}

func TestConfirmationReturnsRecordError(t *testing.T) {
	r := &memRecorder{err: errors.New("db down")}
	err := newConfirmations(&fakeNotifier{}, r).Handle(context.Background(), bookedMessage(t, booked()))
	assert.EqualError(t, err, "db down")
}
