package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness check.  It does not touch Redis or the catalog.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
