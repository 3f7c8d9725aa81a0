package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// EventView is one entry of GET /v1/events.
type EventView struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	DateTime time.Time `json:"date_time"`
	VenueID  int64     `json:"venue_id"`
}

// ListEvents handles GET /v1/events.
func (h *SeatHandler) ListEvents(c echo.Context) error {
	events, err := h.Service.ListEvents(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, EventView{ID: e.ID, Name: e.Name, Type: e.Type, DateTime: e.DateTime.UTC(), VenueID: e.VenueID})
	}
	return c.JSON(http.StatusOK, envelope(c, out))
}
