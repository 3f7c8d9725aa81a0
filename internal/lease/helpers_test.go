package lease

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-reservation/internal/keys"
)

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// recordingReleaser remembers every ref it was asked to release.
type recordingReleaser struct {
	mu    sync.Mutex
	refs  []keys.SeatRef
	err   error
	next  Releaser
}

func (r *recordingReleaser) record(ref keys.SeatRef) error {
	r.mu.Lock()
	r.refs = append(r.refs, ref)
	r.mu.Unlock()
	return r.err
}

func (r *recordingReleaser) ReleaseExpired(ctx context.Context, ref keys.SeatRef) (bool, error) {
	if err := r.record(ref); err != nil {
		return false, err
	}
	if r.next != nil {
		return r.next.ReleaseExpired(ctx, ref)
	}
	return true, nil
}

func (r *recordingReleaser) ReleaseStale(ctx context.Context, ref keys.SeatRef, value, holderID string) (bool, error) {
	if err := r.record(ref); err != nil {
		return false, err
	}
	if r.next != nil {
		return r.next.ReleaseStale(ctx, ref, value, holderID)
	}
	return true, nil
}

func (r *recordingReleaser) released() []keys.SeatRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]keys.SeatRef(nil), r.refs...)
}
