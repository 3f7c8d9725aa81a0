package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-reservation/internal/clock"
	"github.com/iliyamo/seat-reservation/internal/config"
	"github.com/iliyamo/seat-reservation/internal/handler"
	"github.com/iliyamo/seat-reservation/internal/middleware"
)

// Deps groups what the routes need.
type Deps struct {
	Seats     handler.SeatService
	Redis     *redis.Client
	JWTSecret string
	RateLimit config.RateLimitConfig
	Clock     clock.Clock
}

// RegisterRoutes registers routes that do not touch seat state.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSeats registers the seat map, lock and stream endpoints under /v1.
// Holder identity applies to the whole group; the token bucket only guards
// lock attempts.
func RegisterSeats(e *echo.Echo, d Deps) {
	seats := &handler.SeatHandler{Service: d.Seats}
	stream := &handler.StreamHandler{Redis: d.Redis}

	v1 := e.Group("/v1")
	v1.Use(middleware.HolderIdentity(d.JWTSecret))

	v1.GET("/events", seats.ListEvents)
	v1.GET("/seats/:eventId/:venueId", seats.GetSeats)
	v1.GET("/seats/:eventId/:venueId/stream", stream.Stream)
	v1.POST("/seats/locks", seats.Lock, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Clock))
	v1.DELETE("/seats/locks", seats.Unlock)
}
