package storage

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/db"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
)

// Repository holds the catalog writes. Reads go through libs/catalog so that
// booking and queue see rows exactly as written here.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateBusiness(ctx context.Context, b tenant.Business) (string, error) {
	settings, err := b.Settings.Marshal()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO businesses (id, name, slug, phone, address, settings)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, b.Name, b.Slug, b.Phone, b.Address, settings)
	if db.IsConflict(err) {
		return "", apperr.Conflict("slug %q is already taken", b.Slug)
	}
	return id, err
}

// UpdateBusiness changes the contact details. The slug is never rewritten.
func (r *Repository) UpdateBusiness(ctx context.Context, b tenant.Business) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses
		SET name = $2, phone = $3, address = $4, updated_at = now()
		WHERE id = $1
	`, b.ID, b.Name, b.Phone, b.Address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("business not found")
	}
	return nil
}

func (r *Repository) UpdateSettings(ctx context.Context, businessID string, s tenant.Settings) error {
	raw, err := s.Marshal()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses SET settings = $2, updated_at = now() WHERE id = $1
	`, businessID, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("business not found")
	}
	return nil
}

func (r *Repository) CreateService(ctx context.Context, s tenant.Service) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, business_id, name, duration_minutes, price, description, is_active)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
	`, id, s.BusinessID, s.Name, s.DurationMinutes, s.Price.StringFixed(2), s.Description, s.IsActive)
	if db.IsForeignKeyViolation(err) {
		return "", apperr.NotFound("business not found")
	}
	return id, err
}

func (r *Repository) UpdateService(ctx context.Context, s tenant.Service) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE services
		SET name = $3, duration_minutes = $4, price = $5::numeric, description = $6, is_active = $7
		WHERE business_id = $1 AND id = $2
	`, s.BusinessID, s.ID, s.Name, s.DurationMinutes, s.Price.StringFixed(2), s.Description, s.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("service not found")
	}
	return nil
}

func (r *Repository) CreateStaff(ctx context.Context, s tenant.Staff) (string, error) {
	hours, err := marshalHours(s.Hours)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO staff (id, business_id, name, phone, is_active, user_id, hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, s.BusinessID, s.Name, s.Phone, s.IsActive, s.UserID, hours)
	if db.IsForeignKeyViolation(err) {
		return "", apperr.NotFound("business not found")
	}
	return id, err
}

// UpdateStaff also serves deactivation; staff rows are never deleted.
func (r *Repository) UpdateStaff(ctx context.Context, s tenant.Staff) error {
	hours, err := marshalHours(s.Hours)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff
		SET name = $3, phone = $4, is_active = $5, user_id = $6, hours = $7
		WHERE business_id = $1 AND id = $2
	`, s.BusinessID, s.ID, s.Name, s.Phone, s.IsActive, s.UserID, hours)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("staff member not found")
	}
	return nil
}

func marshalHours(h tenant.WeekHours) ([]byte, error) {
	if len(h) == 0 {
		return nil, nil
	}
	return json.Marshal(h)
}
