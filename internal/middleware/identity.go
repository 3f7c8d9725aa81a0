package middleware

// identity.go defines the context keys shared between middleware and
// handlers and the helpers that read them.

import (
	"github.com/labstack/echo/v4"
)

const (
	// HolderKey is the echo context key of the authenticated holder id.
	HolderKey = "holder_id"
	// RequestIDKey is the echo context key of the request id.
	RequestIDKey = "request_id"
)

// HolderID returns the holder resolved by HolderIdentity, if any.
func HolderID(c echo.Context) (string, bool) {
	s, ok := c.Get(HolderKey).(string)
	return s, ok && s != ""
}

// RequestID returns the id assigned by the request id middleware, or "".
func RequestID(c echo.Context) string {
	s, _ := c.Get(RequestIDKey).(string)
	return s
}

// rateSubject is the holder used in rate limit keys.
func rateSubject(c echo.Context) string {
	if h, ok := HolderID(c); ok {
		return h
	}
	return "guest"
}
