// Package status merges the seat catalog with live holds and bookings.
package status

import (
	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/wire"
)

// Resolve returns one SeatState per catalog seat, in catalog order.
//
// A booking wins over a hold and a hold wins over nothing.  holds must
// already be filtered for expiry; bookings holds the raw booking hash
// values keyed by field.  Only booking values of seats present in the
// catalog are decoded, and a value that does not decode fails the whole
// call with model.ErrSerialization.
func Resolve(seats []model.Seat, holds map[string]wire.Entry, bookings map[string]string) ([]model.SeatState, error) {
	out := make([]model.SeatState, 0, len(seats))
	for _, seat := range seats {
		st := model.SeatState{Seat: seat, Status: model.SeatAvailable}

		if raw, ok := bookings[keys.BookingField(seat.RowNumber, seat.SeatNumber)]; ok {
			holder, err := wire.DecodeBookingHolder(raw)
			if err != nil {
				return nil, err
			}
			st.Status = model.SeatBooked
			st.HolderID = holder
		} else if entry, ok := holds[keys.ReservationField(seat.RowNumber, seat.SeatNumber)]; ok {
			st.Status = model.SeatHeld
			st.HolderID = entry.HolderID
		}

		out = append(out, st)
	}
	return out, nil
}
