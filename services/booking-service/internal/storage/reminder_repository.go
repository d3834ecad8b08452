package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/db"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/reminders"
)

type ReminderRepository struct {
	pool *db.Pool
}

func NewReminderRepository(pool *db.Pool) *ReminderRepository {
	return &ReminderRepository{pool: pool}
}

// DueForReminder returns confirmed, not yet reminded appointments of every
// business whose start lies in [from, to], both ends inclusive.
func (r *ReminderRepository) DueForReminder(ctx context.Context, from, to time.Time) ([]reminders.Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.business_id::text, a.customer_name, COALESCE(a.customer_email, ''),
			a.appointment_time, COALESCE(s.name, ''), b.name, b.phone, COALESCE(b.address, ''), b.settings
		FROM appointments a
		JOIN businesses b ON b.id = a.business_id
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.status = 'confirmed'
			AND a.reminder_sent_at IS NULL
			AND a.appointment_time >= $1
			AND a.appointment_time <= $2
		ORDER BY a.appointment_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminders.Candidate
	for rows.Next() {
		var c reminders.Candidate
		var settings []byte
		if err := rows.Scan(&c.AppointmentID, &c.BusinessID, &c.CustomerName, &c.CustomerEmail,
			&c.AppointmentTime, &c.ServiceName, &c.BusinessName, &c.BusinessPhone, &c.Address, &settings); err != nil {
			return nil, err
		}
		c.Settings = tenant.ParseSettings(settings)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ReminderRepository) MarkReminded(ctx context.Context, appointmentID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments SET reminder_sent_at = $2
		WHERE id = $1 AND reminder_sent_at IS NULL
	`, appointmentID, at)
	return err
}
