package outbox

import "encoding/json"

// Event is the envelope written to outbox_events in the same transaction as the
// state change it describes. The Kafka topic is EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	BusinessID    string
	EventType     string
	Payload       []byte
}

// NewEvent marshals payload into an Event.
func NewEvent(aggregateType, aggregateID, businessID, eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		BusinessID:    businessID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
