package model

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// ActiveStatuses occupy a staff member's slot.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusInProgress}

var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusInProgress, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether an appointment may move from -> to. Nothing
// moves back to pending or confirmed once in progress, and terminal states
// have no way out.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              string     `json:"id"`
	BusinessID      string     `json:"business_id"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   string     `json:"customer_phone"`
	CustomerEmail   string     `json:"customer_email,omitempty"`
	ServiceID       string     `json:"service_id"`
	StaffID         string     `json:"staff_id"`
	AppointmentTime time.Time  `json:"appointment_time"`
	Status          Status     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	ReminderSentAt  *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`

	// Filled by list queries that join the catalogue.
	ServiceName string `json:"service_name,omitempty"`
	StaffName   string `json:"staff_name,omitempty"`
}
