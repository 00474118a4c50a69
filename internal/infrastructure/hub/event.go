package hub

import (
	"time"
)

// EventType identifies a reservation lifecycle notification.
type EventType string

const (
	EventReservationCreated   EventType = "reservation_created"
	EventReservationUpdated   EventType = "reservation_updated"
	EventReservationCancelled EventType = "reservation_cancelled"
	EventReservationConfirmed EventType = "reservation_confirmed"
	EventReservationCompleted EventType = "reservation_completed"
)

// Valid reports whether t is one of the known reservation event types.
func (t EventType) Valid() bool {
	switch t {
	case EventReservationCreated,
		EventReservationUpdated,
		EventReservationCancelled,
		EventReservationConfirmed,
		EventReservationCompleted:
		return true
	}
	return false
}

// Reservation is the snapshot carried inside every event payload.
type Reservation struct {
	ID             string `json:"id"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	NumberOfGuests int    `json:"numberOfGuests"`
	Status         string `json:"status"`
	RestaurantID   string `json:"restaurantId"`
}

// Event is a fan-out domain notification. Events are ephemeral: constructed,
// stamped and written within a single Emit call, never stored.
type Event struct {
	Type        EventType   `json:"type"`
	Reservation Reservation `json:"reservation"`
	Timestamp   time.Time   `json:"timestamp"`

	// TenantID is the routing key; it is not part of the wire payload.
	TenantID string `json:"-"`
}

func NewEvent(eventType EventType, tenantID string, reservation Reservation) *Event {
	return &Event{
		Type:        eventType,
		Reservation: reservation,
		TenantID:    tenantID,
	}
}
