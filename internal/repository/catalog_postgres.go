package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iliyamo/seat-reservation/internal/model"
)

const (
	pgSeatsByVenue = `SELECT id, venue_id, row_number, seat_number FROM seats WHERE venue_id = $1 ORDER BY id`
	pgEvents       = `SELECT id, name, type, date_time, venue_id FROM events ORDER BY date_time`
)

// PGCatalog reads seats and events from Postgres.
type PGCatalog struct {
	pool *pgxpool.Pool
}

func NewPGCatalog(pool *pgxpool.Pool) *PGCatalog {
	return &PGCatalog{pool: pool}
}

func (r *PGCatalog) ListSeats(ctx context.Context, venueID int64) ([]model.Seat, error) {
	rows, err := r.pool.Query(ctx, pgSeatsByVenue, venueID)
	if err != nil {
		return nil, fmt.Errorf("%w: query seats of venue %d: %w", model.ErrCatalogUnavailable, venueID, err)
	}
	seats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Seat, error) {
		var s model.Seat
		err := row.Scan(&s.ID, &s.VenueID, &s.RowNumber, &s.SeatNumber)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan seats: %w", model.ErrCatalogUnavailable, err)
	}
	return seats, nil
}

func (r *PGCatalog) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx, pgEvents)
	if err != nil {
		return nil, fmt.Errorf("%w: query events: %w", model.ErrCatalogUnavailable, err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Event, error) {
		var e model.Event
		err := row.Scan(&e.ID, &e.Name, &e.Type, &e.DateTime, &e.VenueID)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan events: %w", model.ErrCatalogUnavailable, err)
	}
	return events, nil
}
