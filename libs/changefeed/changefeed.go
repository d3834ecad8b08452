// Package changefeed lets live displays observe entity changes per business.
// Writers publish after a successful commit; readers subscribe to one table of
// one business and get a callback per change.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

const (
	TableAppointments = "appointments"
	TableQueueEntries = "queue_entries"
)

type Change struct {
	Table      string    `json:"table"`
	BusinessID string    `json:"business_id"`
	EntityID   string    `json:"entity_id"`
	Op         Op        `json:"op"`
	Status     string    `json:"status,omitempty"`
	At         time.Time `json:"at"`
}

// Feed is implemented by the Redis and in-memory backends.
type Feed interface {
	Publish(ctx context.Context, c Change) error
	// Subscribe calls fn for every change until ctx is cancelled or the
	// returned cancel func is called.
	Subscribe(ctx context.Context, businessID, table string, fn func(Change)) (func(), error)
}

func channel(businessID, table string) string {
	return fmt.Sprintf("salonqueue:changes:%s:%s", table, businessID)
}

func encode(c Change) ([]byte, error) {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	return json.Marshal(c)
}
