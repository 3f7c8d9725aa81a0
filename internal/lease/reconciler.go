package lease

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/seat-reservation/internal/clock"
	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/wire"
)

// Releaser clears leases that have run out.  Both calls are conditional
// and report whether anything was removed, so a lease placed after the
// expiry was observed survives the cleanup.
type Releaser interface {
	// ReleaseExpired clears a seat whose lock key has expired, unless the
	// key exists again.
	ReleaseExpired(ctx context.Context, ref keys.SeatRef) (bool, error)
	// ReleaseStale clears a seat only while its hash field still holds
	// value and the lock key is absent or owned by holderID.
	ReleaseStale(ctx context.Context, ref keys.SeatRef, value, holderID string) (bool, error)
}

// Reconciler is the pull side of lease expiry.  A reservation hash field
// outlives its lock key because only the key carries a TTL; the reconciler
// hides such fields from readers and asks the releaser to delete them.
type Reconciler struct {
	releaser Releaser
	clock    clock.Clock
	ttl      time.Duration
	logger   *log.Logger
}

// NewReconciler returns a Reconciler that treats entries older than ttl as
// expired.
func NewReconciler(releaser Releaser, clk clock.Clock, ttl time.Duration, logger *log.Logger) *Reconciler {
	return &Reconciler{releaser: releaser, clock: clk, ttl: ttl, logger: logger}
}

// Filter decodes the raw reservation hash of one event/venue and returns
// the entries that are still live, keyed by hash field.  Expired entries
// are dropped and released on a best-effort basis: a failed release is
// logged and never fails the read, and an entry that has been replaced
// since raw was read is left alone.  An undecodable value is returned as
// model.ErrSerialization.
func (r *Reconciler) Filter(ctx context.Context, eventID, venueID int64, raw map[string]string) (map[string]wire.Entry, error) {
	now := r.clock.Now()
	ttlSeconds := TTLSeconds(r.ttl)
	live := make(map[string]wire.Entry, len(raw))

	for field, value := range raw {
		entry, err := wire.DecodeEntry(value)
		if err != nil {
			return nil, err
		}
		if !Expired(entry.CreatedAt, now, ttlSeconds) {
			live[field] = entry
			continue
		}

		ref, ok := keys.ParseReservationField(field, eventID, venueID)
		if !ok {
			r.logger.Warnf("lazy-expiry: skip malformed field %q in %s", field, keys.ReservationHashKey(eventID, venueID))
			continue
		}
		released, err := r.releaser.ReleaseStale(ctx, ref, value, entry.HolderID)
		if err != nil {
			r.logger.Warnf("lazy-expiry: release %s failed: %v", ref.LockKey(), err)
			continue
		}
		if !released {
			r.logger.Debugf("lazy-expiry: %s changed since read, kept", ref.LockKey())
			continue
		}
		r.logger.Debugf("lazy-expiry: released %s held by %s since %s", ref.LockKey(), entry.HolderID, entry.CreatedAt.Format(time.RFC3339))
	}
	return live, nil
}

// Expired reports whether a lease created at createdAt has run out at now.
// Elapsed time is counted in whole seconds from the entry's own timestamp.
func Expired(createdAt, now time.Time, ttlSeconds int64) bool {
	elapsed := int64(now.Sub(createdAt) / time.Second)
	return elapsed >= ttlSeconds
}
