package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeApproved EventType = "approved"
	EventTypeRejected EventType = "rejected"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypePayment EntityType = "payment"
	EntityTypeFeeItem EntityType = "fee_item"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "payment.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "payment"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PaymentCreated creates a payment.created event
func PaymentCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypePayment, payload)
}

// PaymentApproved creates a payment.approved event
func PaymentApproved(payload interface{}) Event {
	return NewEvent(EventTypeApproved, EntityTypePayment, payload)
}

// PaymentRejected creates a payment.rejected event
func PaymentRejected(payload interface{}) Event {
	return NewEvent(EventTypeRejected, EntityTypePayment, payload)
}

// FeeItemUpdated creates a fee_item.updated event
func FeeItemUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeFeeItem, payload)
}
