// Package service exposes the seat lock engine to transports: lock and
// unlock single seats and read the resolved seat map of an event.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/seat-reservation/internal/clock"
	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/lease"
	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/status"
)

// DefaultLockTTL is used when no WithLockTTL option is given.
const DefaultLockTTL = 120 * time.Second

// Catalog is the read-only seat and event catalog.
type Catalog interface {
	ListSeats(ctx context.Context, venueID int64) ([]model.Seat, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
}

// HoldStore reads the raw reservation hash of an event/venue.
type HoldStore interface {
	Reservations(ctx context.Context, eventID, venueID int64) (map[string]string, error)
}

// BookingReader reads the raw booking hash of an event/venue.
type BookingReader interface {
	Bookings(ctx context.Context, eventID, venueID int64) (map[string]string, error)
}

// Leaser places and removes seat leases atomically.  ReleaseExpired and
// ReleaseStale are the conditional removals used by expiry.
type Leaser interface {
	Acquire(ctx context.Context, ref keys.SeatRef, holderID string, ttl time.Duration) error
	Release(ctx context.Context, ref keys.SeatRef) error
	ReleaseExpired(ctx context.Context, ref keys.SeatRef) (bool, error)
	ReleaseStale(ctx context.Context, ref keys.SeatRef, value, holderID string) (bool, error)
}

// Notifier forwards committed lock changes to an external bus.  Its errors
// never undo a lock change.
type Notifier interface {
	SeatLocked(ctx context.Context, ref keys.SeatRef, holderID string, at time.Time) error
	SeatUnlocked(ctx context.Context, ref keys.SeatRef, at time.Time) error
}

// SeatService orchestrates the lease executor, the reconciler and the
// status aggregator.
type SeatService struct {
	catalog  Catalog
	holds    HoldStore
	bookings BookingReader
	leases   Leaser
	notifier Notifier

	reconciler *lease.Reconciler
	clock      clock.Clock
	ttl        time.Duration
	logger     *log.Logger
}

// Option configures a SeatService.
type Option func(*SeatService)

// WithLockTTL sets the lease duration.  Durations are applied in whole
// seconds.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *SeatService) { s.ttl = ttl }
}

// WithNotifier attaches a notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *SeatService) { s.notifier = n }
}

// WithClock replaces the system clock used for lease timestamps and lazy
// expiry.
func WithClock(c clock.Clock) Option {
	return func(s *SeatService) { s.clock = c }
}

// WithLogger sets the logger; a "seat-service" logger is used otherwise.
func WithLogger(l *log.Logger) Option {
	return func(s *SeatService) { s.logger = l }
}

// NewSeatService wires a SeatService.  The service is its own releaser for
// lazy expiry so that cleanup reaches the notifier as well.
func NewSeatService(catalog Catalog, holds HoldStore, bookings BookingReader, leases Leaser, opts ...Option) *SeatService {
	s := &SeatService{
		catalog:  catalog,
		holds:    holds,
		bookings: bookings,
		leases:   leases,
		clock:    clock.NewSystem(),
		ttl:      DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New("seat-service")
	}
	s.reconciler = lease.NewReconciler(s, s.clock, s.ttl, s.logger)
	return s
}

// LockTTL returns the configured lease duration.
func (s *SeatService) LockTTL() time.Duration { return s.ttl }

// Lock holds one seat for holderID.  It returns model.ErrSeatAlreadyLocked
// when the seat is taken and model.ErrStoreUnavailable on store faults.
func (s *SeatService) Lock(ctx context.Context, eventID, venueID int64, row, seat, holderID string) error {
	ref := keys.SeatRef{EventID: eventID, VenueID: venueID, RowNumber: row, SeatNumber: seat}
	if err := s.leases.Acquire(ctx, ref, holderID, s.ttl); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.SeatLocked(ctx, ref, holderID, s.clock.Now()); err != nil {
			s.logger.Warnf("seat-events: publish lock %s: %v", ref.LockKey(), err)
		}
	}
	return nil
}

// Unlock frees one seat.  Unlocking a free seat succeeds.
func (s *SeatService) Unlock(ctx context.Context, eventID, venueID int64, row, seat string) error {
	return s.Release(ctx, keys.SeatRef{EventID: eventID, VenueID: venueID, RowNumber: row, SeatNumber: seat})
}

// Release frees ref unconditionally and notifies the sink.
func (s *SeatService) Release(ctx context.Context, ref keys.SeatRef) error {
	if err := s.leases.Release(ctx, ref); err != nil {
		return err
	}
	s.unlocked(ctx, ref)
	return nil
}

// ReleaseExpired implements lease.Releaser for the expiry listener.
func (s *SeatService) ReleaseExpired(ctx context.Context, ref keys.SeatRef) (bool, error) {
	released, err := s.leases.ReleaseExpired(ctx, ref)
	if err != nil || !released {
		return released, err
	}
	s.unlocked(ctx, ref)
	return true, nil
}

// ReleaseStale implements lease.Releaser for lazy expiry.
func (s *SeatService) ReleaseStale(ctx context.Context, ref keys.SeatRef, value, holderID string) (bool, error) {
	released, err := s.leases.ReleaseStale(ctx, ref, value, holderID)
	if err != nil || !released {
		return released, err
	}
	s.unlocked(ctx, ref)
	return true, nil
}

func (s *SeatService) unlocked(ctx context.Context, ref keys.SeatRef) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SeatUnlocked(ctx, ref, s.clock.Now()); err != nil {
		s.logger.Warnf("seat-events: publish unlock %s: %v", ref.LockKey(), err)
	}
}

// GetSeats returns the seat map of an event at a venue in catalog order.
// Any failing stage fails the whole call.
func (s *SeatService) GetSeats(ctx context.Context, eventID, venueID int64) ([]model.SeatState, error) {
	seats, err := s.catalog.ListSeats(ctx, venueID)
	if err != nil {
		return nil, ensure(err, model.ErrCatalogUnavailable, "list seats")
	}
	rawHolds, err := s.holds.Reservations(ctx, eventID, venueID)
	if err != nil {
		return nil, ensure(err, model.ErrStoreUnavailable, "read reservations")
	}
	rawBookings, err := s.bookings.Bookings(ctx, eventID, venueID)
	if err != nil {
		return nil, ensure(err, model.ErrStoreUnavailable, "read bookings")
	}

	live, err := s.reconciler.Filter(ctx, eventID, venueID, rawHolds)
	if err != nil {
		return nil, err
	}
	return status.Resolve(seats, live, rawBookings)
}

// ListEvents returns the event catalog.
func (s *SeatService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.catalog.ListEvents(ctx)
	if err != nil {
		return nil, ensure(err, model.ErrCatalogUnavailable, "list events")
	}
	return events, nil
}

// ensure wraps err with sentinel unless it already carries it.
func ensure(err, sentinel error, op string) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", sentinel, op, err)
}
