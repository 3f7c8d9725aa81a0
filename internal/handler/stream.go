package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/wire"
)

const streamKeepAlive = 15 * time.Second

// Subscriber opens pub/sub subscriptions.  *redis.Client satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// StreamHandler relays seat notifications as Server-Sent Events.
type StreamHandler struct {
	Redis Subscriber
}

// StreamEvent is the JSON data of one SSE "seat" event.
type StreamEvent struct {
	Status     string `json:"status"`
	RowNumber  string `json:"row_number"`
	SeatNumber string `json:"seat_number"`
	GuestID    string `json:"guest_id,omitempty"`
}

// Stream handles GET /v1/seats/:eventId/:venueId/stream.  Delivery is best
// effort: clients should refetch the seat map after reconnecting.
func (h *StreamHandler) Stream(c echo.Context) error {
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	venueID, ok := pathID(c, "venueId")
	if !ok {
		return badRequest(c, "invalid venue id")
	}

	ctx := c.Request().Context()
	channel := keys.Channel(eventID, venueID)
	ps := h.Redis.Subscribe(ctx, channel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		c.Logger().Warnf("stream: subscribe %s: %v", channel, err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seat store unavailable"})
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	msgs := ps.Channel()
	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			n, err := wire.DecodeNotification(msg.Payload)
			if err != nil {
				c.Logger().Warnf("stream: drop message on %s: %v", channel, err)
				continue
			}
			data, err := json.Marshal(StreamEvent{
				Status:     n.Status.String(),
				RowNumber:  n.RowNumber,
				SeatNumber: n.SeatNumber,
				GuestID:    n.HolderID,
			})
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: seat\ndata: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
