package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/db"
	"github.com/md-rashed-zaman/salonqueue/services/queue-service/internal/queue"
)

type QueueRepository struct {
	pool *db.Pool
}

func NewQueueRepository(pool *db.Pool) *QueueRepository {
	return &QueueRepository{pool: pool}
}

const entryColumns = `
	q.id::text, q.business_id::text, q.customer_name, q.customer_phone, q.service_id::text,
	COALESCE(s.name, ''), q.queue_number, q.queue_date::text, q.status, q.estimated_wait_minutes,
	q.notified_at, q.created_at`

const entryFrom = `
	FROM queue_entries q
	LEFT JOIN services s ON s.id = q.service_id`

// Day returns a business's tickets for one local date, by queue number.
func (r *QueueRepository) Day(ctx context.Context, businessID, date string) ([]queue.Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+entryFrom+`
		WHERE q.business_id = $1 AND q.queue_date = $2
		ORDER BY q.queue_number`, businessID, date)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r *QueueRepository) Get(ctx context.Context, businessID, id string) (queue.Entry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+`
		WHERE q.business_id = $1 AND q.id = $2`, businessID, id))
	if db.IsNotFound(err) {
		return queue.Entry{}, apperr.NotFound("queue entry not found")
	}
	return e, err
}

// Insert locks the day's tickets, lets build number the new one against
// them, and inserts it. Two joins racing past the lock still cannot share a
// number because of queue_entries_number_uniq.
func (r *QueueRepository) Insert(ctx context.Context, businessID, date string, build func(day []queue.Entry) (queue.Entry, error)) (queue.Entry, error) {
	var created queue.Entry
	err := r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		day, err := lockDay(ctx, tx, businessID, date)
		if err != nil {
			return err
		}
		e, err := build(day)
		if err != nil {
			return err
		}
		var id string
		err = tx.QueryRow(ctx, `
			INSERT INTO queue_entries
				(business_id, customer_name, customer_phone, service_id, queue_number, queue_date, status, estimated_wait_minutes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id::text
		`, e.BusinessID, e.CustomerName, e.CustomerPhone, e.ServiceID, e.QueueNumber, e.QueueDate, string(e.Status), e.EstimatedWaitMinutes).Scan(&id)
		if err != nil {
			return err
		}
		created, err = scanEntry(tx.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE q.id = $1`, id))
		return err
	})
	if db.IsConflict(err) {
		return queue.Entry{}, apperr.Conflict("queue number taken, retry")
	}
	return created, err
}

// Transition locks the day's tickets, asks decide for a plan and writes it
// in order within the same transaction. It returns the changed tickets.
func (r *QueueRepository) Transition(ctx context.Context, businessID, date string, decide func(day []queue.Entry) ([]queue.Change, error), now time.Time) ([]queue.Entry, error) {
	var changed []queue.Entry
	err := r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		day, err := lockDay(ctx, tx, businessID, date)
		if err != nil {
			return err
		}
		plan, err := decide(day)
		if err != nil {
			return err
		}
		for _, c := range plan {
			tag, err := tx.Exec(ctx, `
				UPDATE queue_entries
				SET status = $3,
					notified_at = CASE WHEN $6 THEN COALESCE(notified_at, $4) ELSE notified_at END,
					updated_at = now()
				WHERE business_id = $1 AND id = $2 AND status = $5
			`, businessID, c.EntryID, string(c.To), now, string(c.From), c.CallsCustomer())
			if err != nil {
				return err
			}
			if tag.RowsAffected() != 1 {
				return apperr.Conflict("queue changed, refresh and retry")
			}
		}
		for _, c := range plan {
			e, err := scanEntry(tx.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE q.id = $1`, c.EntryID))
			if err != nil {
				return err
			}
			changed = append(changed, e)
		}
		return nil
	})
	if db.IsConflict(err) {
		return nil, apperr.Conflict("another customer is already being served")
	}
	return changed, err
}

func lockDay(ctx context.Context, tx pgx.Tx, businessID, date string) ([]queue.Entry, error) {
	rows, err := tx.Query(ctx, `SELECT `+entryColumns+entryFrom+`
		WHERE q.business_id = $1 AND q.queue_date = $2
		ORDER BY q.queue_number
		FOR UPDATE OF q`, businessID, date)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]queue.Entry, error) {
	defer rows.Close()
	out := []queue.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (queue.Entry, error) {
	var e queue.Entry
	var status string
	err := row.Scan(
		&e.ID,
		&e.BusinessID,
		&e.CustomerName,
		&e.CustomerPhone,
		&e.ServiceID,
		&e.ServiceName,
		&e.QueueNumber,
		&e.QueueDate,
		&status,
		&e.EstimatedWaitMinutes,
		&e.NotifiedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return queue.Entry{}, err
	}
	e.Status = queue.Status(status)
	return e, nil
}
