// Package wire encodes the small positional tuples stored in the reservation
// and booking hashes and published on seat channels.  The tuples are JSON
// arrays so that independently deployed readers can decode them:
//
//	hash value    ["<createdAt RFC3339Nano>", "<holderId>"]
//	notification  [<status code>, "<row>", "<seat>"(, "<holderId>")]
//
// Positions are a contract; append new elements at the end only.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/seat-reservation/internal/model"
)

// Entry is the value of one reservation (or booking) hash field.
type Entry struct {
	CreatedAt time.Time
	HolderID  string
}

// Notification is the message published on a seat channel after a
// successful acquire or release.
type Notification struct {
	Status     model.SeatStatus
	RowNumber  string
	SeatNumber string
	HolderID   string // set for held seats only
}

// EncodeEntry serialises e as [createdAt, holderId].
func EncodeEntry(e Entry) (string, error) {
	b, err := json.Marshal([]string{e.CreatedAt.UTC().Format(time.RFC3339Nano), e.HolderID})
	if err != nil {
		return "", fmt.Errorf("%w: encode entry: %w", model.ErrSerialization, err)
	}
	return string(b), nil
}

// DecodeEntry parses a reservation hash value.  Both the timestamp and the
// holder must be present and well formed.
func DecodeEntry(raw string) (Entry, error) {
	var parts []string
	if err := json.Unmarshal([]byte(raw), &parts); err != nil {
		return Entry{}, fmt.Errorf("%w: decode entry %q: %w", model.ErrSerialization, raw, err)
	}
	if len(parts) < 2 {
		return Entry{}, fmt.Errorf("%w: decode entry %q: want 2 elements, got %d", model.ErrSerialization, raw, len(parts))
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: decode entry %q: %w", model.ErrSerialization, raw, err)
	}
	return Entry{CreatedAt: createdAt.UTC(), HolderID: parts[1]}, nil
}

// DecodeBookingHolder extracts the holder from a booking hash value.  The
// booking ledger writes the same [timestamp, holder] layout, but only the
// holder position is read here.
func DecodeBookingHolder(raw string) (string, error) {
	var parts []string
	if err := json.Unmarshal([]byte(raw), &parts); err != nil {
		return "", fmt.Errorf("%w: decode booking %q: %w", model.ErrSerialization, raw, err)
	}
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: decode booking %q: want 2 elements, got %d", model.ErrSerialization, raw, len(parts))
	}
	return parts[1], nil
}

// EncodeNotification serialises n as [status, row, seat(, holder)].
func EncodeNotification(n Notification) (string, error) {
	tuple := []any{int(n.Status), n.RowNumber, n.SeatNumber}
	if n.Status == model.SeatHeld {
		tuple = append(tuple, n.HolderID)
	}
	b, err := json.Marshal(tuple)
	if err != nil {
		return "", fmt.Errorf("%w: encode notification: %w", model.ErrSerialization, err)
	}
	return string(b), nil
}

// DecodeNotification parses a channel message.
func DecodeNotification(raw string) (Notification, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &parts); err != nil {
		return Notification{}, fmt.Errorf("%w: decode notification %q: %w", model.ErrSerialization, raw, err)
	}
	if len(parts) < 3 {
		return Notification{}, fmt.Errorf("%w: decode notification %q: want at least 3 elements", model.ErrSerialization, raw)
	}
	var n Notification
	var code int
	if err := json.Unmarshal(parts[0], &code); err != nil || !model.SeatStatus(code).Valid() {
		return Notification{}, fmt.Errorf("%w: decode notification %q: bad status", model.ErrSerialization, raw)
	}
	n.Status = model.SeatStatus(code)
	if err := json.Unmarshal(parts[1], &n.RowNumber); err != nil {
		return Notification{}, fmt.Errorf("%w: decode notification %q: %w", model.ErrSerialization, raw, err)
	}
	if err := json.Unmarshal(parts[2], &n.SeatNumber); err != nil {
		return Notification{}, fmt.Errorf("%w: decode notification %q: %w", model.ErrSerialization, raw, err)
	}
	if len(parts) > 3 {
		if err := json.Unmarshal(parts[3], &n.HolderID); err != nil {
			return Notification{}, fmt.Errorf("%w: decode notification %q: %w", model.ErrSerialization, raw, err)
		}
	}
	return n, nil
}
