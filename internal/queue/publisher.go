package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/seat-reservation/internal/keys"
)

// DefaultQueue is the durable queue seat events are routed to.
const DefaultQueue = "seat.events"

// ErrBrokerUnavailable is returned without dialling while a previous dial
// is still in progress or its backoff has not elapsed.
var ErrBrokerUnavailable = errors.New("seat events broker unavailable")

const (
	defaultDialTimeout = 2 * time.Second
	minRedialBackoff   = time.Second
	maxRedialBackoff   = 30 * time.Second
)

// Publisher sends SeatEvents to a durable queue over a long-lived
// connection.  A broken connection is dropped and redialled on a later
// publish, at most once per backoff window (1s doubling to 30s).  Only one
// caller dials at a time; the others fail fast with ErrBrokerUnavailable so
// a dead broker never stalls the lock path.  Publisher is safe for
// concurrent use.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	logger      *log.Logger
	now         func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	dialing bool
	closed  bool
	backoff time.Duration
	retryAt time.Time
}

// PublisherOption customises a Publisher.
type PublisherOption func(*Publisher)

// WithDialTimeout bounds the TCP connect and AMQP handshake of each dial.
func WithDialTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.dialTimeout = d
		}
	}
}

// NewPublisher returns a Publisher; no connection is made until the first
// publish.
func NewPublisher(url, queue string, logger *log.Logger, opts ...PublisherOption) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	p := &Publisher{
		url:         url,
		queue:       queue,
		dialTimeout: defaultDialTimeout,
		logger:      logger,
		now:         time.Now,
		backoff:     minRedialBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SeatLocked publishes a LOCK event.
func (p *Publisher) SeatLocked(ctx context.Context, ref keys.SeatRef, holderID string, at time.Time) error {
	return p.Publish(ctx, NewSeatEvent(EventLock, ref, holderID, at))
}

// SeatUnlocked publishes an UNLOCK event.
func (p *Publisher) SeatUnlocked(ctx context.Context, ref keys.SeatRef, at time.Time) error {
	return p.Publish(ctx, NewSeatEvent(EventUnlock, ref, "", at))
}

// NewSeatEvent builds the message for one lock change.
func NewSeatEvent(eventType string, ref keys.SeatRef, holderID string, at time.Time) SeatEvent {
	return SeatEvent{
		EventType: eventType,
		Payload: SeatPayload{
			EventID:    ref.EventID,
			VenueID:    ref.VenueID,
			RowNumber:  ref.RowNumber,
			SeatNumber: ref.SeatNumber,
			GuestID:    holderID,
		},
		OccurredAt: at.UTC(),
	}
}

// Publish marshals ev and sends it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev SeatEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal seat event: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.logger.Warnf("seat-events: publish failed: %v", err)
		p.drop(ch)
		return fmt.Errorf("publish seat event: %w", err)
	}
	return nil
}

// Close shuts the connection down.  Later publishes fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}

// channel returns the open channel, dialling outside the lock when the
// connection is gone and no other dial or backoff is pending.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: publisher closed", ErrBrokerUnavailable)
	}
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.dialing || p.now().Before(p.retryAt) {
		p.mu.Unlock()
		return nil, ErrBrokerUnavailable
	}
	p.resetLocked()
	p.dialing = true
	p.mu.Unlock()

	conn, ch, err := p.dial()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		p.retryAt = p.now().Add(p.backoff)
		p.logger.Warnf("seat-events: %v; next dial in %s", err, p.backoff)
		if p.backoff < maxRedialBackoff {
			p.backoff *= 2
			if p.backoff > maxRedialBackoff {
				p.backoff = maxRedialBackoff
			}
		}
		return nil, err
	}
	if p.closed {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: publisher closed", ErrBrokerUnavailable)
	}
	p.backoff = minRedialBackoff
	p.retryAt = time.Time{}
	p.conn, p.ch = conn, ch
	p.logger.Infof("seat-events: connected, publishing to %s", p.queue)
	return ch, nil
}

func (p *Publisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(p.dialTimeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	return conn, ch, nil
}

// drop discards ch's connection unless a newer one already replaced it.
func (p *Publisher) drop(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.resetLocked()
	}
}

func (p *Publisher) resetLocked() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}
