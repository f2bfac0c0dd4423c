package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventReorderRequested = "pharmacy.reorder.requested"
	EventExpiryAlerted    = "pharmacy.expiry.alerted"
)

// ExchangePharmacyEvents carries every event the intel service emits
const ExchangePharmacyEvents = "pharmacy.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// ReorderRequestedEvent is published after the assistant accepted a reorder
type ReorderRequestedEvent struct {
	Medicine    string    `json:"medicine"`
	Stock       *int      `json:"stock,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Response    string    `json:"response"`
	RequestedAt time.Time `json:"requested_at"`
}

// ExpiryAlertedEvent is published when the expiry popup fires for a forecast view
type ExpiryAlertedEvent struct {
	Medicine string          `json:"medicine"`
	Batches  []ExpiringBatch `json:"batches"`
}

// ExpiringBatch is the event payload form of an expiring batch
type ExpiringBatch struct {
	DrugName     string `json:"drug_name"`
	Batch        string `json:"batch"`
	DaysToExpiry int    `json:"days_to_expiry"`
}
