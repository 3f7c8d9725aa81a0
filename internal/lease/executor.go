// Package lease acquires and releases per-seat leases in Redis and keeps the
// reservation hash honest once a lease's TTL has passed.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-reservation/internal/clock"
	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/model"
	"github.com/iliyamo/seat-reservation/internal/wire"
)

// acquireScript creates the lock key only if absent, then sets its TTL,
// mirrors it into the reservation hash and publishes the change.  Nothing
// is written when the key already exists.
//
// KEYS[1] lock key, KEYS[2] reservation hash
// ARGV[1] ttl seconds, ARGV[2] hash field, ARGV[3] hash value,
// ARGV[4] channel, ARGV[5] message, ARGV[6] holder id
var acquireScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[6]) == 0 then
	return 0
end
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
redis.call('PUBLISH', ARGV[4], ARGV[5])
return 1
`)

// releaseScript deletes the lock key and its hash field and publishes the
// change.  Deleting absent entries is not an error.
//
// KEYS[1] lock key, KEYS[2] reservation hash
// ARGV[1] hash field, ARGV[2] channel, ARGV[3] message
var releaseScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('PUBLISH', ARGV[2], ARGV[3])
return 1
`)

// reapExpiredScript is the push-side cleanup.  It only removes the hash
// field when the lock key is still absent; a key that exists again belongs
// to a newer lease.
//
// KEYS[1] lock key, KEYS[2] reservation hash
// ARGV[1] hash field, ARGV[2] channel, ARGV[3] message
var reapExpiredScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
if redis.call('HDEL', KEYS[2], ARGV[1]) == 0 then
	return 0
end
redis.call('PUBLISH', ARGV[2], ARGV[3])
return 1
`)

// reapStaleScript is the pull-side cleanup.  The hash field must still hold
// the exact value the reader judged expired, and the lock key must be gone
// or still owned by that value's holder.
//
// KEYS[1] lock key, KEYS[2] reservation hash
// ARGV[1] hash field, ARGV[2] stale value, ARGV[3] stale holder id,
// ARGV[4] channel, ARGV[5] message
var reapStaleScript = redis.NewScript(`
if redis.call('HGET', KEYS[2], ARGV[1]) ~= ARGV[2] then
	return 0
end
local owner = redis.call('GET', KEYS[1])
if owner and owner ~= ARGV[3] then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('PUBLISH', ARGV[4], ARGV[5])
return 1
`)

// Executor runs the acquire and release scripts.  All cross-caller
// exclusion comes from Redis executing each script atomically; the
// executor itself holds no locks and is safe for concurrent use.
type Executor struct {
	rdb    redis.Cmdable
	clock  clock.Clock
	logger *log.Logger
}

// NewExecutor returns an Executor bound to the given Redis client.
func NewExecutor(rdb redis.Cmdable, clk clock.Clock, logger *log.Logger) *Executor {
	return &Executor{rdb: rdb, clock: clk, logger: logger}
}

// Acquire places a lease on ref for holderID.  It returns nil on success,
// model.ErrSeatAlreadyLocked when another lease exists, and
// model.ErrStoreUnavailable on any transport failure.
func (e *Executor) Acquire(ctx context.Context, ref keys.SeatRef, holderID string, ttl time.Duration) error {
	value, err := wire.EncodeEntry(wire.Entry{CreatedAt: e.clock.Now(), HolderID: holderID})
	if err != nil {
		return err
	}
	msg, err := wire.EncodeNotification(wire.Notification{
		Status:     model.SeatHeld,
		RowNumber:  ref.RowNumber,
		SeatNumber: ref.SeatNumber,
		HolderID:   holderID,
	})
	if err != nil {
		return err
	}

	lockKey := ref.LockKey()
	res, err := acquireScript.Run(ctx, e.rdb,
		[]string{lockKey, ref.ReservationHashKey()},
		TTLSeconds(ttl), ref.ReservationField(), value, ref.Channel(), msg, holderID,
	).Int()
	if err != nil {
		e.logger.Errorf("seat-lock: acquire %s failed: %v", lockKey, err)
		return fmt.Errorf("%w: acquire %s: %w", model.ErrStoreUnavailable, lockKey, err)
	}
	if res == 0 {
		return fmt.Errorf("%w: %s", model.ErrSeatAlreadyLocked, lockKey)
	}
	e.logger.Debugf("seat-lock: acquired %s for %s", lockKey, holderID)
	return nil
}

// Release removes any lease on ref.  Releasing a free seat succeeds.
func (e *Executor) Release(ctx context.Context, ref keys.SeatRef) error {
	msg, err := availableMessage(ref)
	if err != nil {
		return err
	}

	lockKey := ref.LockKey()
	err = releaseScript.Run(ctx, e.rdb,
		[]string{lockKey, ref.ReservationHashKey()},
		ref.ReservationField(), ref.Channel(), msg,
	).Err()
	if err != nil {
		e.logger.Errorf("seat-lock: release %s failed: %v", lockKey, err)
		return fmt.Errorf("%w: release %s: %w", model.ErrStoreUnavailable, lockKey, err)
	}
	e.logger.Debugf("seat-lock: released %s", lockKey)
	return nil
}

// ReleaseExpired clears the hash field of a lease whose lock key has
// expired.  It reports false, touching nothing, when the seat has been
// locked again or the field is already gone.
func (e *Executor) ReleaseExpired(ctx context.Context, ref keys.SeatRef) (bool, error) {
	msg, err := availableMessage(ref)
	if err != nil {
		return false, err
	}
	lockKey := ref.LockKey()
	res, err := reapExpiredScript.Run(ctx, e.rdb,
		[]string{lockKey, ref.ReservationHashKey()},
		ref.ReservationField(), ref.Channel(), msg,
	).Int()
	if err != nil {
		e.logger.Errorf("seat-lock: reap expired %s failed: %v", lockKey, err)
		return false, fmt.Errorf("%w: reap %s: %w", model.ErrStoreUnavailable, lockKey, err)
	}
	return res == 1, nil
}

// ReleaseStale removes the lease on ref only while the reservation hash
// still holds value and the lock key is absent or owned by holderID.  It
// reports false when a newer lease has replaced the stale one.
func (e *Executor) ReleaseStale(ctx context.Context, ref keys.SeatRef, value, holderID string) (bool, error) {
	msg, err := availableMessage(ref)
	if err != nil {
		return false, err
	}
	lockKey := ref.LockKey()
	res, err := reapStaleScript.Run(ctx, e.rdb,
		[]string{lockKey, ref.ReservationHashKey()},
		ref.ReservationField(), value, holderID, ref.Channel(), msg,
	).Int()
	if err != nil {
		e.logger.Errorf("seat-lock: reap stale %s failed: %v", lockKey, err)
		return false, fmt.Errorf("%w: reap %s: %w", model.ErrStoreUnavailable, lockKey, err)
	}
	return res == 1, nil
}

func availableMessage(ref keys.SeatRef) (string, error) {
	return wire.EncodeNotification(wire.Notification{
		Status:     model.SeatAvailable,
		RowNumber:  ref.RowNumber,
		SeatNumber: ref.SeatNumber,
	})
}

// TTLSeconds converts a lease duration to whole seconds, never below one.
func TTLSeconds(ttl time.Duration) int64 {
	s := int64(ttl / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
