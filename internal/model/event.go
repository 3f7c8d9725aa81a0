package model

import "time"

// Event is a scheduled happening at a venue.  Seat locks and bookings are
// always scoped to an (event, venue) pair.
type Event struct {
	ID       int64     // events.id
	Name     string    // events.name
	Type     string    // events.type
	DateTime time.Time // events.date_time
	VenueID  int64     // events.venue_id
}
