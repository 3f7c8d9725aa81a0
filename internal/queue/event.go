// Package queue carries seat lock changes to RabbitMQ and reads them back
// for auditing.
package queue

import "time"

// Event types on the seat events queue.
const (
	EventLock   = "LOCK"
	EventUnlock = "UNLOCK"
)

// SeatEvent is published after a lock change has been committed to Redis.
// It is informational: consumers must not use it to reconstruct lock state.
type SeatEvent struct {
	EventType  string      `json:"event_type"`
	Payload    SeatPayload `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// SeatPayload identifies the seat.  GuestID is set for LOCK only.
type SeatPayload struct {
	EventID    int64  `json:"event_id"`
	VenueID    int64  `json:"venue_id"`
	RowNumber  string `json:"row_number"`
	SeatNumber string `json:"seat_number"`
	GuestID    string `json:"guest_id,omitempty"`
}
