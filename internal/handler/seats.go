package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/middleware"
	"github.com/iliyamo/seat-reservation/internal/model"
)

// SeatService is the part of the reservation service the handlers use.
type SeatService interface {
	Lock(ctx context.Context, eventID, venueID int64, row, seat, holderID string) error
	Unlock(ctx context.Context, eventID, venueID int64, row, seat string) error
	GetSeats(ctx context.Context, eventID, venueID int64) ([]model.SeatState, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	LockTTL() time.Duration
}

// SeatHandler serves seat maps and lock changes.
type SeatHandler struct {
	Service SeatService
}

// SeatView is one entry of a seat map response.
type SeatView struct {
	ID         int64  `json:"id"`
	RowNumber  string `json:"row_number"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
	GuestID    string `json:"guest_id,omitempty"`
}

// LockRequest is the body of POST and DELETE /v1/seats/locks.  GuestID is
// ignored on DELETE.
type LockRequest struct {
	EventID    int64  `json:"event_id"`
	VenueID    int64  `json:"venue_id"`
	RowNumber  string `json:"row_number"`
	SeatNumber string `json:"seat_number"`
	GuestID    string `json:"guest_id"`
}

// LockView describes a seat after a lock change.
type LockView struct {
	EventID    int64  `json:"event_id"`
	VenueID    int64  `json:"venue_id"`
	RowNumber  string `json:"row_number"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
	GuestID    string `json:"guest_id,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

// GetSeats handles GET /v1/seats/:eventId/:venueId.
func (h *SeatHandler) GetSeats(c echo.Context) error {
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	venueID, ok := pathID(c, "venueId")
	if !ok {
		return badRequest(c, "invalid venue id")
	}

	states, err := h.Service.GetSeats(c.Request().Context(), eventID, venueID)
	if err != nil {
		return errorJSON(c, err)
	}
	out := make([]SeatView, 0, len(states))
	for _, s := range states {
		out = append(out, SeatView{
			ID:         s.Seat.ID,
			RowNumber:  s.Seat.RowNumber,
			SeatNumber: s.Seat.SeatNumber,
			Status:     s.Status.String(),
			GuestID:    s.HolderID,
		})
	}
	return c.JSON(http.StatusOK, envelope(c, out))
}

// Lock handles POST /v1/seats/locks.  An authenticated holder overrides
// guest_id from the body.
func (h *SeatHandler) Lock(c echo.Context) error {
	req, msg := bindLock(c)
	if msg != "" {
		return badRequest(c, msg)
	}
	if holder, ok := middleware.HolderID(c); ok {
		req.GuestID = holder
	}
	if req.GuestID == "" {
		return badRequest(c, "guest_id is required")
	}

	err := h.Service.Lock(c.Request().Context(), req.EventID, req.VenueID, req.RowNumber, req.SeatNumber, req.GuestID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, envelope(c, LockView{
		EventID:    req.EventID,
		VenueID:    req.VenueID,
		RowNumber:  req.RowNumber,
		SeatNumber: req.SeatNumber,
		Status:     model.SeatHeld.String(),
		GuestID:    req.GuestID,
		TTLSeconds: int64(h.Service.LockTTL() / time.Second),
	}))
}

// Unlock handles DELETE /v1/seats/locks.  Unlocking a free seat is a
// success.
func (h *SeatHandler) Unlock(c echo.Context) error {
	req, msg := bindLock(c)
	if msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Service.Unlock(c.Request().Context(), req.EventID, req.VenueID, req.RowNumber, req.SeatNumber); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, envelope(c, LockView{
		EventID:    req.EventID,
		VenueID:    req.VenueID,
		RowNumber:  req.RowNumber,
		SeatNumber: req.SeatNumber,
		Status:     model.SeatAvailable.String(),
	}))
}

// bindLock decodes and validates a LockRequest.  A non-empty message means
// the request is invalid.
func bindLock(c echo.Context) (LockRequest, string) {
	var req LockRequest
	if err := c.Bind(&req); err != nil {
		return req, "invalid request body"
	}
	switch {
	case req.EventID <= 0:
		return req, "event_id must be positive"
	case req.VenueID <= 0:
		return req, "venue_id must be positive"
	case !keys.ValidComponent(req.RowNumber):
		return req, "row_number must be non-empty and must not contain '_'"
	case !keys.ValidComponent(req.SeatNumber):
		return req, "seat_number must be non-empty and must not contain '_'"
	}
	return req, ""
}
