package tenant

import (
	"time"

	"github.com/shopspring/decimal"
)

type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Phone     string    `json:"phone"`
	Address   *string   `json:"address,omitempty"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	ID              string          `json:"id"`
	BusinessID      string          `json:"business_id"`
	Name            string          `json:"name"`
	DurationMinutes int             `json:"duration_minutes"`
	Price           decimal.Decimal `json:"price"`
	Description     *string         `json:"description,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Staff struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	Phone      *string   `json:"phone,omitempty"`
	IsActive   bool      `json:"is_active"`
	UserID     *string   `json:"user_id,omitempty"`
	Hours      WeekHours `json:"hours,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HoursFor prefers the staff member's own window for that weekday and falls
// back to the business hours.
func (s Staff) HoursFor(day time.Weekday, business WeekHours) DayHours {
	if h, ok := s.Hours[day]; ok {
		return h
	}
	return business.For(day)
}
