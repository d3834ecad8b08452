// Package events holds the Kafka event contracts shared by producers and consumers.
package events

import (
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/notify"
)

const (
	AppointmentBooked        = "appointment.booked.v1"
	AppointmentStatusChanged = "appointment.status_changed.v1"
)

// Booked is the payload of appointment.booked.v1. It carries everything the
// notifier needs so the consumer does not read the booking tables.
type Booked struct {
	AppointmentID    string         `json:"appointment_id"`
	BusinessID       string         `json:"business_id"`
	CustomerEmail    string         `json:"customer_email,omitempty"`
	SendConfirmation bool           `json:"send_confirmation"`
	AppointmentTime  time.Time      `json:"appointment_time"`
	Notification     notify.Payload `json:"notification"`
}

type StatusChanged struct {
	AppointmentID string    `json:"appointment_id"`
	BusinessID    string    `json:"business_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ChangedAt     time.Time `json:"changed_at"`
}
