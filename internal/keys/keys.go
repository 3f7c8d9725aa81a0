// Package keys builds and parses the Redis key names used by the seat lock
// engine.  Every name is a deterministic function of (event, venue, row,
// seat); parsing never fails loudly and reports a mismatch with ok=false.
//
// Layout:
//
//	lock key          seat:lock:{event}_{venue}_{row}_{seat}
//	reservation hash  seats:reservation:{event}:{venue}   field {row}_{seat}
//	booking hash      seats:booking:{event}:{venue}       field {row}_{seat}
//	channel           seat:events:{event}_{venue}
package keys

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const (
	LockPrefix        = "seat:lock:"
	ReservationPrefix = "seats:reservation:"
	BookingPrefix     = "seats:booking:"
	ChannelPrefix     = "seat:events:"

	sep = "_"
)

// ErrInvalidKeyFormat describes a key or field that does not follow the
// layout.  The parse helpers absorb it and return ok=false.
var ErrInvalidKeyFormat = errors.New("invalid key format")

var (
	lockKeyPattern = regexp.MustCompile(`^seat:lock:(\d+)_(\d+)_([^_]+)_([^_]+)$`)
	fieldPattern   = regexp.MustCompile(`^([^_]+)_([^_]+)$`)
)

// SeatRef addresses one seat of one event at one venue.
type SeatRef struct {
	EventID    int64
	VenueID    int64
	RowNumber  string
	SeatNumber string
}

// LockKey returns the scalar key whose existence means "seat is held".
func LockKey(eventID, venueID int64, row, seat string) string {
	return LockPrefix + itoa(eventID) + sep + itoa(venueID) + sep + row + sep + seat
}

// ReservationHashKey returns the per event/venue hash mirroring live locks.
func ReservationHashKey(eventID, venueID int64) string {
	return ReservationPrefix + itoa(eventID) + ":" + itoa(venueID)
}

// ReservationField returns the hash field of a seat inside the reservation hash.
func ReservationField(row, seat string) string {
	return row + sep + seat
}

// BookingHashKey returns the per event/venue hash of sold seats.
func BookingHashKey(eventID, venueID int64) string {
	return BookingPrefix + itoa(eventID) + ":" + itoa(venueID)
}

// BookingField returns the hash field of a seat inside the booking hash.
func BookingField(row, seat string) string {
	return row + sep + seat
}

// Channel returns the pub/sub channel carrying seat status changes.
func Channel(eventID, venueID int64) string {
	return ChannelPrefix + itoa(eventID) + sep + itoa(venueID)
}

// Keys of a SeatRef, for callers that already hold one.

func (r SeatRef) LockKey() string {
	return LockKey(r.EventID, r.VenueID, r.RowNumber, r.SeatNumber)
}

func (r SeatRef) ReservationHashKey() string { return ReservationHashKey(r.EventID, r.VenueID) }

func (r SeatRef) ReservationField() string { return ReservationField(r.RowNumber, r.SeatNumber) }

func (r SeatRef) Channel() string { return Channel(r.EventID, r.VenueID) }

// ParseLockKey is the inverse of LockKey.  Any input that LockKey could not
// have produced, including ids that overflow int64, yields ok=false.
func ParseLockKey(key string) (SeatRef, bool) {
	ref, err := parseLockKey(key)
	return ref, err == nil
}

func parseLockKey(key string) (SeatRef, error) {
	m := lockKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return SeatRef{}, ErrInvalidKeyFormat
	}
	eventID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return SeatRef{}, ErrInvalidKeyFormat
	}
	venueID, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return SeatRef{}, ErrInvalidKeyFormat
	}
	return SeatRef{EventID: eventID, VenueID: venueID, RowNumber: m[3], SeatNumber: m[4]}, nil
}

// ParseReservationField turns a reservation hash field back into a SeatRef
// using the event and venue of the hash it was read from.
func ParseReservationField(field string, eventID, venueID int64) (SeatRef, bool) {
	m := fieldPattern.FindStringSubmatch(field)
	if m == nil {
		return SeatRef{}, false
	}
	return SeatRef{EventID: eventID, VenueID: venueID, RowNumber: m[1], SeatNumber: m[2]}, true
}

// ValidComponent reports whether s can be used as a row or seat label
// without breaking the separator scheme.
func ValidComponent(s string) bool {
	return s != "" && !strings.Contains(s, sep)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
