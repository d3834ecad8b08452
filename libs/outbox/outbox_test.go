package outbox

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/salonqueue/libs/kafkax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent("appointment", "a1", "b1", "appointment.booked.v1", map[string]string{"id": "a1"})
	require.NoError(t, err)
	assert.Equal(t, "appointment.booked.v1", evt.EventType)
	assert.JSONEq(t, `{"id":"a1"}`, string(evt.Payload))
}

func TestToMessageCarriesMeta(t *testing.T) {
	msg := toMessage(context.Background(), Record{
		ID:          7,
		EventID:     "evt-7",
		AggregateID: "a1",
		BusinessID:  "b1",
		EventType:   "appointment.booked.v1",
		Payload:     []byte(`{}`),
	})
	assert.Equal(t, "appointment.booked.v1", msg.Topic)
	assert.Equal(t, []byte("a1"), msg.Key)

	meta := kafkax.ExtractEventMeta(msg)
	assert.Equal(t, "evt-7", meta.EventID)
	assert.Equal(t, "b1", meta.BusinessID)
}
