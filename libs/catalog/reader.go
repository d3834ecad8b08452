// Package catalog reads the tenant catalogue (businesses, staff, services) from
// Postgres. business-service owns the writes; every service reads through here.
package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/db"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by *db.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Reader struct {
	q Querier
}

func NewReader(pool *db.Pool) *Reader {
	return &Reader{q: pool}
}

// WithQuerier runs the reads inside a transaction.
func WithQuerier(q Querier) *Reader {
	return &Reader{q: q}
}

const businessColumns = `id::text, name, slug, phone, address, settings, created_at`

func (r *Reader) Business(ctx context.Context, id string) (tenant.Business, error) {
	b, err := scanBusiness(r.q.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
	if db.IsNotFound(err) {
		return tenant.Business{}, apperr.NotFound("business not found")
	}
	return b, err
}

func (r *Reader) BusinessBySlug(ctx context.Context, slug string) (tenant.Business, error) {
	b, err := scanBusiness(r.q.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE slug = $1`, slug))
	if db.IsNotFound(err) {
		return tenant.Business{}, apperr.NotFound("business not found")
	}
	return b, err
}

func (r *Reader) Businesses(ctx context.Context, limit int) ([]tenant.Business, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, `SELECT `+businessColumns+` FROM businesses ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []tenant.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const serviceColumns = `id::text, business_id::text, name, duration_minutes, price::text, description, is_active, created_at`

func (r *Reader) Service(ctx context.Context, businessID, id string) (tenant.Service, error) {
	s, err := scanService(r.q.QueryRow(ctx, `
		SELECT `+serviceColumns+` FROM services WHERE business_id = $1 AND id = $2
	`, businessID, id))
	if db.IsNotFound(err) {
		return tenant.Service{}, apperr.NotFound("service not found")
	}
	return s, err
}

// Services lists a business's services by name; activeOnly hides retired ones.
func (r *Reader) Services(ctx context.Context, businessID string, activeOnly bool) ([]tenant.Service, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE business_id = $1 AND (is_active OR NOT $2)
		ORDER BY name
	`, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []tenant.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ServiceDurations maps service id to minutes for every service of a business.
func (r *Reader) ServiceDurations(ctx context.Context, businessID string) (map[string]int, error) {
	rows, err := r.q.Query(ctx, `SELECT id::text, duration_minutes FROM services WHERE business_id = $1`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var id string
		var mins int
		if err := rows.Scan(&id, &mins); err != nil {
			return nil, err
		}
		out[id] = mins
	}
	return out, rows.Err()
}

const staffColumns = `id::text, business_id::text, name, phone, is_active, user_id, hours, created_at`

func (r *Reader) Staff(ctx context.Context, businessID, id string) (tenant.Staff, error) {
	s, err := scanStaff(r.q.QueryRow(ctx, `
		SELECT `+staffColumns+` FROM staff WHERE business_id = $1 AND id = $2
	`, businessID, id))
	if db.IsNotFound(err) {
		return tenant.Staff{}, apperr.NotFound("staff member not found")
	}
	return s, err
}

func (r *Reader) StaffList(ctx context.Context, businessID string, activeOnly bool) ([]tenant.Staff, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE business_id = $1 AND (is_active OR NOT $2)
		ORDER BY name
	`, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []tenant.Staff{}
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanBusiness(row pgx.Row) (tenant.Business, error) {
	var b tenant.Business
	var settings []byte
	if err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.Phone, &b.Address, &settings, &b.CreatedAt); err != nil {
		return tenant.Business{}, err
	}
	b.Settings = tenant.ParseSettings(settings)
	return b, nil
}

func scanService(row pgx.Row) (tenant.Service, error) {
	var s tenant.Service
	var price string
	if err := row.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &price, &s.Description, &s.IsActive, &s.CreatedAt); err != nil {
		return tenant.Service{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return tenant.Service{}, err
	}
	s.Price = p
	return s, nil
}

func scanStaff(row pgx.Row) (tenant.Staff, error) {
	var s tenant.Staff
	var hours []byte
	if err := row.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Phone, &s.IsActive, &s.UserID, &hours, &s.CreatedAt); err != nil {
		return tenant.Staff{}, err
	}
	s.Hours = staffHours(hours)
	return s, nil
}

// staffHours decodes a staff member's override. An absent override defers to
// the business hours; an unreadable one keeps the staff member off the book.
func staffHours(raw []byte) tenant.WeekHours {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	week, err := tenant.ParseWeekHours(raw)
	if err != nil {
		return tenant.ClosedWeek()
	}
	return week
}
