package model

import "errors"

// ErrSeatAlreadyLocked is returned when a conditional acquire lost the race
// for a seat.  It is an expected outcome, not a fault: the seat is taken.
var ErrSeatAlreadyLocked = errors.New("seat already locked")

// ErrStoreUnavailable wraps transport or server faults from the shared
// key-value store.  Callers may retry; the seat state is unknown.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrSerialization is returned when a stored payload (hash value or
// notification) cannot be decoded.
var ErrSerialization = errors.New("serialization error")

// ErrCatalogUnavailable is returned when the seat or event catalog cannot be
// read.
var ErrCatalogUnavailable = errors.New("catalog unavailable")
