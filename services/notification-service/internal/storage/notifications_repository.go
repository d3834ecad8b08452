package storage

import (
	"context"

	"github.com/md-rashed-zaman/salonqueue/libs/db"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Notification is one delivery attempt as recorded in the notifications table.
type Notification struct {
	AppointmentID string
	BusinessID    string
	Template      string
	Recipient     string
	Provider      string
	ProviderID    string
	Status        string
	Error         string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, business_id, template, recipient, provider, provider_id, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.AppointmentID, n.BusinessID, n.Template, n.Recipient, n.Provider, n.ProviderID, n.Status, n.Error)
	return err
}
