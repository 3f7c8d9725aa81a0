// Package handler exposes the seat lock engine over HTTP.  Handlers shape
// requests and responses only; all seat semantics live in the service.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-reservation/internal/middleware"
	"github.com/iliyamo/seat-reservation/internal/model"
)

// Metadata accompanies every successful payload.
type Metadata struct {
	RequestID string `json:"request_id"`
}

// envelope wraps data with request metadata.
func envelope(c echo.Context, data any) echo.Map {
	return echo.Map{
		"metadata": Metadata{RequestID: middleware.RequestID(c)},
		"data":     data,
	}
}

// errorJSON maps the error taxonomy onto HTTP status codes.
func errorJSON(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrSeatAlreadyLocked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat already locked"})
	case errors.Is(err, model.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seat store unavailable"})
	case errors.Is(err, model.ErrCatalogUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "catalog unavailable"})
	case errors.Is(err, model.ErrSerialization):
		c.Logger().Errorf("handler: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "corrupt seat data"})
	}
	c.Logger().Errorf("handler: unexpected error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive int64 path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
