package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/model"
)

// ReservationRepo reads the reservation hash mirrored by the lease
// executor.  Values are returned raw; expiry filtering happens in the
// lease reconciler.
type ReservationRepo struct {
	rdb redis.Cmdable
}

func NewReservationRepo(rdb redis.Cmdable) *ReservationRepo {
	return &ReservationRepo{rdb: rdb}
}

// Reservations returns field -> encoded entry for one event/venue.
func (r *ReservationRepo) Reservations(ctx context.Context, eventID, venueID int64) (map[string]string, error) {
	return hashAll(ctx, r.rdb, keys.ReservationHashKey(eventID, venueID))
}

// BookingRepo reads the booking hash.  Bookings are written by the checkout
// workflow; this service never modifies them.
type BookingRepo struct {
	rdb redis.Cmdable
}

func NewBookingRepo(rdb redis.Cmdable) *BookingRepo {
	return &BookingRepo{rdb: rdb}
}

// Bookings returns field -> encoded booking for one event/venue.
func (r *BookingRepo) Bookings(ctx context.Context, eventID, venueID int64) (map[string]string, error) {
	return hashAll(ctx, r.rdb, keys.BookingHashKey(eventID, venueID))
}

func hashAll(ctx context.Context, rdb redis.Cmdable, key string) (map[string]string, error) {
	m, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall %s: %w", model.ErrStoreUnavailable, key, err)
	}
	return m, nil
}
