// Package reminders implements the day-ahead reminder sweep: find confirmed
// appointments starting 23 to 25 hours from now and email each customer once.
package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/notify"
	"github.com/md-rashed-zaman/salonqueue/libs/phone"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
)

const (
	WindowStart = 23 * time.Hour
	WindowEnd   = 25 * time.Hour
)

type Candidate struct {
	AppointmentID   string
	BusinessID      string
	CustomerName    string
	CustomerEmail   string
	AppointmentTime time.Time
	ServiceName     string
	BusinessName    string
	BusinessPhone   string
	Address         string
	Settings        tenant.Settings
}

type Store interface {
	DueForReminder(ctx context.Context, from, to time.Time) ([]Candidate, error)
	MarkReminded(ctx context.Context, appointmentID string, at time.Time) error
}

type Notifier interface {
	Notify(ctx context.Context, tmpl notify.Template, to string, p notify.Payload) (string, error)
}

const (
	ItemSent    = "sent"
	ItemFailed  = "failed"
	ItemSkipped = "skipped"
)

type ItemResult struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

type Result struct {
	Message    string       `json:"message"`
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Results    []ItemResult `json:"results"`
}

type Sweeper struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(store Store, notifier Notifier, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// Run performs one sweep. Only the candidate query can fail the run; a failed
// email is counted and the sweep moves on to the next appointment.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	candidates, err := s.store.DueForReminder(ctx, now.Add(WindowStart), now.Add(WindowEnd))
	if err != nil {
		return Result{}, err
	}

	res := Result{Total: len(candidates), Results: make([]ItemResult, 0, len(candidates))}
	if len(candidates) == 0 {
		res.Message = "No appointments need reminders"
		return res, nil
	}

	for _, c := range candidates {
		item := s.remind(ctx, c, now)
		switch item.Status {
		case ItemSent:
			res.Successful++
		case ItemFailed:
			res.Failed++
		default:
			res.Skipped++
		}
		res.Results = append(res.Results, item)
	}
	res.Message = "Reminder emails processed"
	s.logger.Info("reminder sweep finished",
		"total", res.Total, "successful", res.Successful, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func (s *Sweeper) remind(ctx context.Context, c Candidate, now time.Time) ItemResult {
	item := ItemResult{AppointmentID: c.AppointmentID}
	if c.CustomerEmail == "" || !c.Settings.Notifications.Reminder {
		item.Status = ItemSkipped
		return item
	}

	date, clock := notify.FormatWhen(c.AppointmentTime, c.Settings.Location())
	_, err := s.notifier.Notify(ctx, notify.TemplateReminder, c.CustomerEmail, notify.Payload{
		CustomerName:  c.CustomerName,
		BusinessName:  c.BusinessName,
		ServiceName:   c.ServiceName,
		Date:          date,
		Time:          clock,
		BusinessPhone: phone.Display(c.BusinessPhone),
		Address:       c.Address,
	})
	if err != nil {
		s.logger.Warn("reminder failed", "appointment_id", c.AppointmentID, "business_id", c.BusinessID, "err", err)
		item.Status = ItemFailed
		item.Error = err.Error()
		return item
	}

	item.Status = ItemSent
	if err := s.store.MarkReminded(ctx, c.AppointmentID, now); err != nil {
		// The email went out; a lost mark only risks one duplicate next run.
		s.logger.Warn("failed to mark reminder sent", "appointment_id", c.AppointmentID, "err", err)
	}
	return item
}
