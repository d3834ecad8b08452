// Package booking holds the appointment use cases: slot lookup, booking,
// customer lookup and cancel, and staff status changes.
package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/changefeed"
	"github.com/md-rashed-zaman/salonqueue/libs/events"
	"github.com/md-rashed-zaman/salonqueue/libs/notify"
	"github.com/md-rashed-zaman/salonqueue/libs/outbox"
	"github.com/md-rashed-zaman/salonqueue/libs/phone"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
	"github.com/md-rashed-zaman/salonqueue/libs/validate"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/storage"
)

type Catalog interface {
	Business(ctx context.Context, id string) (tenant.Business, error)
	Service(ctx context.Context, businessID, id string) (tenant.Service, error)
	Staff(ctx context.Context, businessID, id string) (tenant.Staff, error)
}

type Store interface {
	BookedStarts(ctx context.Context, staffID string, from, to time.Time) ([]time.Time, error)
	Create(ctx context.Context, appt model.Appointment, idempotencyKey string, build storage.EventBuilder) (model.Appointment, bool, error)
	FindByIdempotencyKey(ctx context.Context, businessID, key string) (model.Appointment, bool, error)
	Get(ctx context.Context, businessID, id string) (model.Appointment, error)
	Transition(ctx context.Context, businessID, id string, to model.Status, guard func(model.Appointment) error) (model.Appointment, error)
	ListBetween(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error)
	UpcomingByContact(ctx context.Context, businessID, phone, email string, now time.Time) ([]model.Appointment, error)
}

type Service struct {
	catalog Catalog
	store   Store
	feed    changefeed.Feed
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(catalog Catalog, store Store, feed changefeed.Feed, logger *slog.Logger) *Service {
	return &Service{catalog: catalog, store: store, feed: feed, logger: logger, now: time.Now}
}

type SlotsQuery struct {
	BusinessID string `json:"business_id" validate:"required,uuid"`
	StaffID    string `json:"staff_id" validate:"required,uuid"`
	Date       string `json:"date" validate:"required,date"`
}

// Slots lists the free start times for one staff member on one date. Past
// dates give an empty list and, for today, slots that already started are dropped.
func (s *Service) Slots(ctx context.Context, q SlotsQuery) ([]string, error) {
	if err := validate.Struct(q); err != nil {
		return nil, err
	}
	biz, err := s.catalog.Business(ctx, q.BusinessID)
	if err != nil {
		return nil, err
	}
	staff, err := s.catalog.Staff(ctx, q.BusinessID, q.StaffID)
	if err != nil {
		return nil, err
	}
	if !staff.IsActive {
		return []string{}, nil
	}

	loc := biz.Settings.Location()
	day, _ := time.ParseInLocation(time.DateOnly, q.Date, loc)
	now := s.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return []string{}, nil
	}

	booked, err := s.store.BookedStarts(ctx, staff.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	slots := availability.Generate(availability.Request{
		Hours:  staff.HoursFor(day.Weekday(), biz.Settings.Hours),
		Date:   day,
		Step:   biz.Settings.SlotStep(),
		Booked: booked,
	})
	if !day.Equal(today) {
		return slots, nil
	}

	upcoming := slots[:0]
	for _, slot := range slots {
		if at, ok := availability.At(day, slot); ok && at.After(now) {
			upcoming = append(upcoming, slot)
		}
	}
	return upcoming, nil
}

type BookRequest struct {
	BusinessID    string `json:"business_id" validate:"required,uuid"`
	ServiceID     string `json:"service_id" validate:"required,uuid"`
	StaffID       string `json:"staff_id" validate:"required,uuid"`
	CustomerName  string `json:"customer_name" validate:"required,max=200"`
	CustomerPhone string `json:"customer_phone" validate:"required,max=40"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email,max=254"`
	Date          string `json:"date" validate:"required,date"`
	Time          string `json:"time" validate:"required,clock"`
	Notes         string `json:"notes" validate:"max=1000"`
}

// Book creates a confirmed appointment if the requested slot is still offered.
// A request repeating a completed idempotency key gets the first appointment
// back with replayed=true. The confirmation email is queued through the
// outbox and never blocks the booking.
func (s *Service) Book(ctx context.Context, req BookRequest, idempotencyKey string) (model.Appointment, bool, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := validate.Struct(req); err != nil {
		return model.Appointment{}, false, err
	}
	if appt, ok, err := s.replay(ctx, req.BusinessID, idempotencyKey); err != nil || ok {
		return appt, ok, err
	}

	biz, err := s.catalog.Business(ctx, req.BusinessID)
	if err != nil {
		return model.Appointment{}, false, err
	}
	svc, err := s.catalog.Service(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		return model.Appointment{}, false, err
	}
	if !svc.IsActive {
		return model.Appointment{}, false, validate.Fail("service_id", "service is no longer offered")
	}
	staff, err := s.catalog.Staff(ctx, req.BusinessID, req.StaffID)
	if err != nil {
		return model.Appointment{}, false, err
	}
	if !staff.IsActive {
		return model.Appointment{}, false, validate.Fail("staff_id", "staff member is not taking bookings")
	}
	customerPhone, err := phone.Normalize(req.CustomerPhone, biz.Settings.PhoneRegion)
	if err != nil {
		return model.Appointment{}, false, validate.Fail("customer_phone", "customer_phone is not a valid phone number")
	}

	loc := biz.Settings.Location()
	day, _ := time.ParseInLocation(time.DateOnly, req.Date, loc)
	start, _ := availability.At(day, req.Time)
	if !start.After(s.now()) {
		return model.Appointment{}, false, validate.Fail("time", "appointment time must be in the future")
	}

	slots, err := s.Slots(ctx, SlotsQuery{BusinessID: req.BusinessID, StaffID: req.StaffID, Date: req.Date})
	if err != nil {
		return model.Appointment{}, false, err
	}
	if !contains(slots, req.Time) {
		// the slot may have gone to an earlier attempt with the same key
		if appt, ok, err := s.replay(ctx, req.BusinessID, idempotencyKey); err != nil || ok {
			return appt, ok, err
		}
		return model.Appointment{}, false, apperr.Conflict("slot no longer available")
	}

	appt := model.Appointment{
		BusinessID:      biz.ID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   customerPhone,
		CustomerEmail:   req.CustomerEmail,
		ServiceID:       svc.ID,
		StaffID:         staff.ID,
		AppointmentTime: start.UTC(),
		Status:          model.StatusConfirmed,
		Notes:           req.Notes,
	}
	created, replayed, err := s.store.Create(ctx, appt, idempotencyKey, func(created model.Appointment) ([]outbox.Event, error) {
		evt, err := outbox.NewEvent("appointment", created.ID, biz.ID, events.AppointmentBooked,
			bookedEvent(created, biz, svc))
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
	if err != nil {
		return model.Appointment{}, false, err
	}
	if !replayed {
		s.publish(ctx, created, changefeed.OpInsert)
	}
	return created, replayed, nil
}

func (s *Service) replay(ctx context.Context, businessID, key string) (model.Appointment, bool, error) {
	if key == "" {
		return model.Appointment{}, false, nil
	}
	return s.store.FindByIdempotencyKey(ctx, businessID, key)
}

func bookedEvent(appt model.Appointment, biz tenant.Business, svc tenant.Service) events.Booked {
	date, clock := notify.FormatWhen(appt.AppointmentTime, biz.Settings.Location())
	address := ""
	if biz.Address != nil {
		address = *biz.Address
	}
	return events.Booked{
		AppointmentID:    appt.ID,
		BusinessID:       appt.BusinessID,
		CustomerEmail:    appt.CustomerEmail,
		SendConfirmation: appt.CustomerEmail != "" && biz.Settings.Notifications.Confirmation,
		AppointmentTime:  appt.AppointmentTime,
		Notification: notify.Payload{
			CustomerName:  appt.CustomerName,
			BusinessName:  biz.Name,
			ServiceName:   svc.Name,
			Date:          date,
			Time:          clock,
			BusinessPhone: phone.Display(biz.Phone),
			Address:       address,
		},
	}
}

type LookupQuery struct {
	BusinessID string `json:"business_id" validate:"required,uuid"`
	Phone      string `json:"phone" validate:"required_without=Email,max=40"`
	Email      string `json:"email" validate:"omitempty,email"`
}

// Lookup returns a customer's upcoming pending or confirmed appointments.
func (s *Service) Lookup(ctx context.Context, q LookupQuery) ([]model.Appointment, error) {
	q.Phone = strings.TrimSpace(q.Phone)
	q.Email = strings.TrimSpace(q.Email)
	if err := validate.Struct(q); err != nil {
		return nil, err
	}
	biz, err := s.catalog.Business(ctx, q.BusinessID)
	if err != nil {
		return nil, err
	}
	normalized := ""
	if q.Phone != "" {
		normalized, err = phone.Normalize(q.Phone, biz.Settings.PhoneRegion)
		if err != nil {
			return nil, validate.Fail("phone", "phone is not a valid phone number")
		}
	}
	return s.store.UpcomingByContact(ctx, biz.ID, normalized, q.Email, s.now())
}

type CustomerCancel struct {
	BusinessID    string `json:"business_id" validate:"required,uuid"`
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Phone         string `json:"phone" validate:"required_without=Email,max=40"`
	Email         string `json:"email" validate:"omitempty,email"`
}

// CancelByCustomer cancels an upcoming appointment when the caller proves it
// is theirs with the phone or email used to book.
func (s *Service) CancelByCustomer(ctx context.Context, req CustomerCancel) (model.Appointment, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return model.Appointment{}, err
	}
	biz, err := s.catalog.Business(ctx, req.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	normalized := ""
	if req.Phone != "" {
		normalized, _ = phone.Normalize(req.Phone, biz.Settings.PhoneRegion)
	}

	appt, err := s.store.Transition(ctx, biz.ID, req.AppointmentID, model.StatusCancelled, func(current model.Appointment) error {
		phoneMatch := normalized != "" && normalized == current.CustomerPhone
		emailMatch := req.Email != "" && strings.EqualFold(req.Email, current.CustomerEmail)
		if !phoneMatch && !emailMatch {
			return apperr.NotFound("appointment not found")
		}
		if current.Status != model.StatusPending && current.Status != model.StatusConfirmed {
			return apperr.Conflict("appointment can no longer be cancelled online")
		}
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	s.publish(ctx, appt, changefeed.OpUpdate)
	return appt, nil
}

// UpdateStatus is the staff action on an appointment.
func (s *Service) UpdateStatus(ctx context.Context, businessID, id, status string) (model.Appointment, error) {
	to, err := model.ParseStatus(status)
	if err != nil {
		return model.Appointment{}, validate.Fail("status", "status must be one of: pending confirmed in_progress completed cancelled no_show")
	}
	appt, err := s.store.Transition(ctx, businessID, id, to, nil)
	if err != nil {
		return model.Appointment{}, err
	}
	s.publish(ctx, appt, changefeed.OpUpdate)
	return appt, nil
}

func (s *Service) Get(ctx context.Context, businessID, id string) (model.Appointment, error) {
	return s.store.Get(ctx, businessID, id)
}

// ListDay returns every appointment of the business on date (business-local).
func (s *Service) ListDay(ctx context.Context, businessID, date string) ([]model.Appointment, error) {
	biz, err := s.catalog.Business(ctx, businessID)
	if err != nil {
		return nil, err
	}
	loc := biz.Settings.Location()
	var day time.Time
	if date == "" {
		now := s.now().In(loc)
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	} else {
		day, err = time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return nil, validate.Fail("date", "date must be a date as YYYY-MM-DD")
		}
	}
	return s.store.ListBetween(ctx, biz.ID, day, day.AddDate(0, 0, 1))
}

func (s *Service) publish(ctx context.Context, appt model.Appointment, op changefeed.Op) {
	if s.feed == nil {
		return
	}
	err := s.feed.Publish(ctx, changefeed.Change{
		Table:      changefeed.TableAppointments,
		BusinessID: appt.BusinessID,
		EntityID:   appt.ID,
		Op:         op,
		Status:     string(appt.Status),
	})
	if err != nil {
		s.logger.Warn("change publish failed", "appointment_id", appt.ID, "err", err)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
