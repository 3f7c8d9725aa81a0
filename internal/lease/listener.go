package lease

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/model"
)

const releaseTimeout = 5 * time.Second

// ExpiryListener is the push side of lease expiry.  It subscribes to the
// keyevent expired channel and releases every seat whose lock key expired
// and has not been locked again since.
// Delivery is not durable: events emitted while the listener is
// disconnected are lost, which the Reconciler covers on the next read.
type ExpiryListener struct {
	client    *redis.Client
	releaser  Releaser
	db        int
	configure bool
	logger    *log.Logger

	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

// ListenerOption customises an ExpiryListener.
type ListenerOption func(*ExpiryListener)

// WithNotifyConfig controls whether Start tries to enable expired-key
// notifications on the server with CONFIG SET.
func WithNotifyConfig(enabled bool) ListenerOption {
	return func(l *ExpiryListener) { l.configure = enabled }
}

// NewExpiryListener builds a listener for the client's database.
func NewExpiryListener(client *redis.Client, releaser Releaser, logger *log.Logger, opts ...ListenerOption) *ExpiryListener {
	l := &ExpiryListener{
		client:    client,
		releaser:  releaser,
		db:        client.Options().DB,
		configure: true,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Channel is the keyevent channel the listener subscribes to.
func (l *ExpiryListener) Channel() string {
	return fmt.Sprintf("__keyevent@%d__:expired", l.db)
}

// Start subscribes and launches the dispatch loop.  It returns once the
// subscription is confirmed by the server.
func (l *ExpiryListener) Start(ctx context.Context) error {
	if l.configure {
		l.enableNotifications(ctx)
	}

	ps := l.client.Subscribe(ctx, l.Channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("%w: subscribe %s: %w", model.ErrStoreUnavailable, l.Channel(), err)
	}
	l.pubsub = ps

	msgs := ps.Channel()
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for msg := range msgs {
			l.handle(msg.Payload)
		}
	}()
	l.logger.Infof("expiry-listener: subscribed to %s", l.Channel())
	return nil
}

// Close unsubscribes and waits for the dispatch loop to finish.
func (l *ExpiryListener) Close() error {
	if l.pubsub == nil {
		return nil
	}
	err := l.pubsub.Close()
	l.wg.Wait()
	l.pubsub = nil
	return err
}

func (l *ExpiryListener) handle(expiredKey string) {
	if !strings.HasPrefix(expiredKey, keys.LockPrefix) {
		return
	}
	ref, ok := keys.ParseLockKey(expiredKey)
	if !ok {
		l.logger.Debugf("expiry-listener: ignore malformed key %q", expiredKey)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	released, err := l.releaser.ReleaseExpired(ctx, ref)
	if err != nil {
		l.logger.Errorf("expiry-listener: release %s failed: %v", expiredKey, err)
		return
	}
	if !released {
		l.logger.Debugf("expiry-listener: %s relocked or already clear", expiredKey)
		return
	}
	l.logger.Infof("expiry-listener: released expired %s", expiredKey)
}

// enableNotifications adds the E (keyevent) and x (expired) classes to the
// server's notify-keyspace-events setting, keeping any classes already on.
// Managed Redis often forbids CONFIG; failure only logs a warning.
func (l *ExpiryListener) enableNotifications(ctx context.Context) {
	current, err := l.client.ConfigGet(ctx, "notify-keyspace-events").Result()
	if err != nil {
		l.logger.Warnf("expiry-listener: read notify-keyspace-events: %v", err)
		return
	}
	flags := current["notify-keyspace-events"]
	want := flags
	if !strings.Contains(want, "E") {
		want += "E"
	}
	if !strings.Contains(want, "x") && !strings.Contains(want, "A") {
		want += "x"
	}
	if want == flags {
		return
	}
	if err := l.client.ConfigSet(ctx, "notify-keyspace-events", want).Err(); err != nil {
		l.logger.Warnf("expiry-listener: set notify-keyspace-events=%s: %v", want, err)
		return
	}
	l.logger.Infof("expiry-listener: notify-keyspace-events %q -> %q", flags, want)
}
