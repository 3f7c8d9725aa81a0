package repository // repository reads the seat catalog and the Redis seat hashes

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"fmt"

	"github.com/iliyamo/seat-reservation/internal/model"
)

// row_number is a reserved word in MySQL 8 and must be quoted.
const (
	mysqlSeatsByVenue = "SELECT id, venue_id, `row_number`, seat_number FROM seats WHERE venue_id = ? ORDER BY id"
	mysqlEvents       = "SELECT id, name, type, date_time, venue_id FROM events ORDER BY date_time"
)

// MySQLCatalog reads seats and events from MySQL.  It never writes.
type MySQLCatalog struct {
	db *sql.DB
}

// NewMySQLCatalog constructs a MySQLCatalog with the given DB handle.
func NewMySQLCatalog(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

// ListSeats returns all seats of a venue ordered by id.  A venue without
// seats yields an empty slice.
func (r *MySQLCatalog) ListSeats(ctx context.Context, venueID int64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, mysqlSeatsByVenue, venueID)
	if err != nil {
		return nil, fmt.Errorf("%w: query seats of venue %d: %w", model.ErrCatalogUnavailable, venueID, err)
	}
	defer rows.Close()

	seats := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.VenueID, &s.RowNumber, &s.SeatNumber); err != nil {
			return nil, fmt.Errorf("%w: scan seat: %w", model.ErrCatalogUnavailable, err)
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate seats: %w", model.ErrCatalogUnavailable, err)
	}
	return seats, nil
}

// ListEvents returns every event ordered by start time.
func (r *MySQLCatalog) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, mysqlEvents)
	if err != nil {
		return nil, fmt.Errorf("%w: query events: %w", model.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.DateTime, &e.VenueID); err != nil {
			return nil, fmt.Errorf("%w: scan event: %w", model.ErrCatalogUnavailable, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate events: %w", model.ErrCatalogUnavailable, err)
	}
	return events, nil
}
