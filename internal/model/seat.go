package model

// Seat describes a physical seat in a venue as stored in the catalog.
// Seats are uniquely identified by their venue, row and seat number and
// are read-only to the lock engine.
//
// Fields:
//
//	ID         – primary key identifier.
//	VenueID    – venue to which this seat belongs.
//	RowNumber  – row label (e.g. "A", "12").
//	SeatNumber – seat label within the row.
type Seat struct {
	ID         int64  // seats.id
	VenueID    int64  // seats.venue_id
	RowNumber  string // seats.row_number
	SeatNumber string // seats.seat_number
}

// SeatStatus is the displayed state of a seat for one event.  The numeric
// values are part of the notification wire format and must not change.
type SeatStatus int

const (
	SeatAvailable SeatStatus = 1
	SeatHeld      SeatStatus = 2
	SeatBooked    SeatStatus = 3
)

// String returns the API spelling of the status.
func (s SeatStatus) String() string {
	switch s {
	case SeatAvailable:
		return "AVAILABLE"
	case SeatHeld:
		return "HELD"
	case SeatBooked:
		return "BOOKED"
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the known statuses.
func (s SeatStatus) Valid() bool {
	return s >= SeatAvailable && s <= SeatBooked
}

// SeatState is one resolved row of a seat map: the catalog seat plus its
// current status.  HolderID is empty for available seats.
type SeatState struct {
	Seat     Seat
	Status   SeatStatus
	HolderID string
}
