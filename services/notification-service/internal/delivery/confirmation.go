// Package delivery turns appointment events into customer emails.
package delivery

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/md-rashed-zaman/salonqueue/libs/events"
	"github.com/md-rashed-zaman/salonqueue/libs/kafkax"
	"github.com/md-rashed-zaman/salonqueue/libs/notify"
	"github.com/md-rashed-zaman/salonqueue/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type Notifier interface {
	Provider() string
	Notify(ctx context.Context, tmpl notify.Template, to string, p notify.Payload) (string, error)
}

type Recorder interface {
	Insert(ctx context.Context, n storage.Notification) error
}

type Confirmations struct {
	notifier Notifier
	store    Recorder
	logger   *slog.Logger
}

func NewConfirmations(notifier Notifier, store Recorder, logger *slog.Logger) *Confirmations {
	return &Confirmations{notifier: notifier, store: store, logger: logger}
}

// Handle sends the booking confirmation for an appointment.booked.v1 event.
// A failed send is recorded and logged; only a failure to record is returned.
func (c *Confirmations) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventType != events.AppointmentBooked {
		return nil
	}

	var evt events.Booked
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.logger.Error("invalid booked payload", "err", err, "event_id", meta.EventID)
		return nil
	}
	if evt.AppointmentID == "" || evt.BusinessID == "" {
		c.logger.Error("booked event missing ids", "event_id", meta.EventID)
		return nil
	}

	record := storage.Notification{
		AppointmentID: evt.AppointmentID,
		BusinessID:    evt.BusinessID,
		Template:      string(notify.TemplateConfirmation),
		Recipient:     evt.CustomerEmail,
		Provider:      c.notifier.Provider(),
	}
	switch {
	case evt.CustomerEmail == "":
		record.Status = storage.StatusSkipped
		record.Error = "no email on appointment"
	case !evt.SendConfirmation:
		record.Status = storage.StatusSkipped
		record.Error = "confirmations disabled"
	default:
		id, err := c.notifier.Notify(ctx, notify.TemplateConfirmation, evt.CustomerEmail, evt.Notification)
		if err != nil {
			c.logger.Error("confirmation send failed", "err", err, "appointment_id", evt.AppointmentID)
			record.Status = storage.StatusFailed
			record.Error = err.Error()
		} else {
			record.Status = storage.StatusSent
			record.ProviderID = id
		}
	}

	if err := c.store.Insert(ctx, record); err != nil {
		return err
	}
	c.logger.Info("confirmation processed", "appointment_id", evt.AppointmentID, "status", record.Status)
	return nil
}
