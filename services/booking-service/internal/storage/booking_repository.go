package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/db"
	"github.com/md-rashed-zaman/salonqueue/libs/events"
	"github.com/md-rashed-zaman/salonqueue/libs/outbox"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/model"
)

type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

const appointmentColumns = `
	a.id::text, a.business_id::text, a.customer_name, a.customer_phone, COALESCE(a.customer_email, ''),
	a.service_id::text, a.staff_id::text, a.appointment_time, a.status, COALESCE(a.notes, ''),
	a.reminder_sent_at, a.created_at, COALESCE(s.name, ''), COALESCE(st.name, '')`

const appointmentFrom = `
	FROM appointments a
	LEFT JOIN services s ON s.id = a.service_id
	LEFT JOIN staff st ON st.id = a.staff_id`

// BookedStarts returns start times of a staff member's active appointments in [from, to).
func (r *BookingRepository) BookedStarts(ctx context.Context, staffID string, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE staff_id = $1
			AND status = ANY($2)
			AND appointment_time >= $3
			AND appointment_time < $4
		ORDER BY appointment_time
	`, staffID, activeStatusStrings(), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EventBuilder derives the outbox events for a freshly inserted appointment.
type EventBuilder func(created model.Appointment) ([]outbox.Event, error)

// Create inserts the appointment and its outbox events atomically. With an
// idempotency key, a repeated request returns the first appointment and
// replayed=true instead of booking twice.
func (r *BookingRepository) Create(ctx context.Context, appt model.Appointment, idempotencyKey string, build EventBuilder) (created model.Appointment, replayed bool, err error) {
	err = r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if idempotencyKey != "" {
			existingID, err := lockIdempotencyKey(ctx, tx, appt.BusinessID, idempotencyKey)
			if err != nil {
				return err
			}
			if existingID != "" {
				created, err = getAppointment(ctx, tx, appt.BusinessID, existingID, false)
				replayed = true
				return err
			}
		}

		var email, notes *string
		if appt.CustomerEmail != "" {
			email = &appt.CustomerEmail
		}
		if appt.Notes != "" {
			notes = &appt.Notes
		}
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO appointments
				(business_id, customer_name, customer_phone, customer_email, service_id, staff_id, appointment_time, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id::text
		`, appt.BusinessID, appt.CustomerName, appt.CustomerPhone, email, appt.ServiceID, appt.StaffID,
			appt.AppointmentTime, string(appt.Status), notes).Scan(&id)
		if err != nil {
			if db.IsConflict(err) {
				return apperr.Conflict("slot no longer available")
			}
			return err
		}

		if idempotencyKey != "" {
			if _, err := tx.Exec(ctx, `
				UPDATE booking_idempotency_keys
				SET appointment_id = $3
				WHERE business_id = $1 AND idempotency_key = $2
			`, appt.BusinessID, idempotencyKey, id); err != nil {
				return err
			}
		}

		created, err = getAppointment(ctx, tx, appt.BusinessID, id, false)
		if err != nil || build == nil {
			return err
		}
		evts, err := build(created)
		if err != nil {
			return err
		}
		for _, evt := range evts {
			if err := r.outbox.Insert(ctx, tx, evt); err != nil {
				return err
			}
		}
		return nil
	})
	return created, replayed, err
}

// FindByIdempotencyKey returns the appointment a finished request with this
// key created. ok is false while the key is unused or still in flight.
func (r *BookingRepository) FindByIdempotencyKey(ctx context.Context, businessID, key string) (appt model.Appointment, ok bool, err error) {
	err = r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(appointment_id::text, '')
			FROM booking_idempotency_keys
			WHERE business_id = $1 AND idempotency_key = $2
		`, businessID, key).Scan(&id)
		if db.IsNotFound(err) || (err == nil && id == "") {
			return nil
		}
		if err != nil {
			return err
		}
		appt, err = getAppointment(ctx, tx, businessID, id, false)
		ok = err == nil
		return err
	})
	return appt, ok, err
}

func (r *BookingRepository) Get(ctx context.Context, businessID, id string) (model.Appointment, error) {
	var appt model.Appointment
	err := r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		appt, err = getAppointment(ctx, tx, businessID, id, false)
		return err
	})
	return appt, err
}

// Transition moves an appointment to status `to`. guard sees the row under lock
// and may veto; the transition table is enforced here as well.
func (r *BookingRepository) Transition(ctx context.Context, businessID, id string, to model.Status, guard func(model.Appointment) error) (model.Appointment, error) {
	var out model.Appointment
	err := r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := getAppointment(ctx, tx, businessID, id, true)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}
		if !model.CanTransition(current.Status, to) {
			return apperr.Conflict("appointment cannot move from %s to %s", current.Status, to)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE appointments SET status = $3, updated_at = now()
			WHERE business_id = $1 AND id = $2
		`, businessID, id, string(to)); err != nil {
			if db.IsConflict(err) {
				return apperr.Conflict("slot no longer available")
			}
			return err
		}

		evt, err := outbox.NewEvent("appointment", id, businessID, events.AppointmentStatusChanged, events.StatusChanged{
			AppointmentID: id,
			BusinessID:    businessID,
			From:          string(current.Status),
			To:            string(to),
			ChangedAt:     time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}

		out = current
		out.Status = to
		return nil
	})
	return out, err
}

// ListBetween returns a business's appointments starting in [from, to) by time.
func (r *BookingRepository) ListBetween(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+appointmentFrom+`
		WHERE a.business_id = $1 AND a.appointment_time >= $2 AND a.appointment_time < $3
		ORDER BY a.appointment_time, a.created_at
	`, businessID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// UpcomingByContact finds pending or confirmed appointments from now on that
// match the phone or the email (either may be empty, not both).
func (r *BookingRepository) UpcomingByContact(ctx context.Context, businessID, phone, email string, now time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+appointmentFrom+`
		WHERE a.business_id = $1
			AND a.status IN ('pending', 'confirmed')
			AND a.appointment_time >= $2
			AND (($3 <> '' AND a.customer_phone = $3) OR ($4 <> '' AND lower(a.customer_email) = lower($4)))
		ORDER BY a.appointment_time
	`, businessID, now, phone, email)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func getAppointment(ctx context.Context, tx pgx.Tx, businessID, id string, forUpdate bool) (model.Appointment, error) {
	q := `SELECT ` + appointmentColumns + appointmentFrom + ` WHERE a.business_id = $1 AND a.id = $2`
	if forUpdate {
		q += ` FOR UPDATE OF a`
	}
	appt, err := scanAppointment(tx.QueryRow(ctx, q, businessID, id))
	if db.IsNotFound(err) {
		return model.Appointment{}, apperr.NotFound("appointment not found")
	}
	return appt, err
}

func lockIdempotencyKey(ctx context.Context, tx pgx.Tx, businessID, key string) (string, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (business_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (business_id, idempotency_key) DO NOTHING
	`, businessID, key); err != nil {
		return "", err
	}
	var appointmentID string
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(appointment_id::text, '')
		FROM booking_idempotency_keys
		WHERE business_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, businessID, key).Scan(&appointmentID)
	return appointmentID, err
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	out := []model.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.CustomerName,
		&appt.CustomerPhone,
		&appt.CustomerEmail,
		&appt.ServiceID,
		&appt.StaffID,
		&appt.AppointmentTime,
		&status,
		&appt.Notes,
		&appt.ReminderSentAt,
		&appt.CreatedAt,
		&appt.ServiceName,
		&appt.StaffName,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	return appt, nil
}

func activeStatusStrings() []string {
	out := make([]string, 0, len(model.ActiveStatuses))
	for _, s := range model.ActiveStatuses {
		out = append(out, string(s))
	}
	return out
}
