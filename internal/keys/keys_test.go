package keys

import (
	"strings"
	"testing"
)

func TestBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"lock key", LockKey(123, 456, "A", "7"), "seat:lock:123_456_A_7"},
		{"reservation hash", ReservationHashKey(123, 456), "seats:reservation:123:456"},
		{"reservation field", ReservationField("A", "7"), "A_7"},
		{"booking hash", BookingHashKey(123, 456), "seats:booking:123:456"},
		{"booking field", BookingField("A", "7"), "A_7"},
		{"channel", Channel(123, 456), "seat:events:123_456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, tt.got)
			}
		})
	}
}

func TestSeatRefKeys(t *testing.T) {
	ref := SeatRef{EventID: 1, VenueID: 2, RowNumber: "B", SeatNumber: "12"}
	if ref.LockKey() != "seat:lock:1_2_B_12" {
		t.Fatalf("unexpected lock key %q", ref.LockKey())
	}
	if ref.ReservationHashKey() != "seats:reservation:1:2" || ref.ReservationField() != "B_12" {
		t.Fatalf("unexpected reservation key/field %q %q", ref.ReservationHashKey(), ref.ReservationField())
	}
	if ref.Channel() != "seat:events:1_2" {
		t.Fatalf("unexpected channel %q", ref.Channel())
	}
}

func TestParseLockKey(t *testing.T) {
	ref, ok := ParseLockKey("seat:lock:123_456_A_7")
	if !ok {
		t.Fatal("expected valid key to parse")
	}
	want := SeatRef{EventID: 123, VenueID: 456, RowNumber: "A", SeatNumber: "7"}
	if ref != want {
		t.Fatalf("expected %+v, got %+v", want, ref)
	}

	invalid := []string{
		"",
		"invalid:key:format",
		"seat:lock:123_A",
		"seat:lock:abc_456_A_7",
		"seat:lock:123_456_A_7_8",
		"seat:lock:123_456__7",
		"seats:reservation:123:456",
		"xseat:lock:1_2_A_7",
		"seat:lock:99999999999999999999_1_A_7",
		"seat:lock:-1_2_A_7",
		"seat:lock:1_2_A_7\x00",
	}
	for _, key := range invalid {
		if ref, ok := ParseLockKey(key); ok {
			t.Errorf("expected %q to be rejected, got %+v", key, ref)
		}
	}
}

func TestParseReservationField(t *testing.T) {
	ref, ok := ParseReservationField("A_7", 123, 456)
	if !ok {
		t.Fatal("expected valid field to parse")
	}
	want := SeatRef{EventID: 123, VenueID: 456, RowNumber: "A", SeatNumber: "7"}
	if ref != want {
		t.Fatalf("expected %+v, got %+v", want, ref)
	}
	for _, field := range []string{"A", "A_7_extra", "_", "_7", "A_", ""} {
		if _, ok := ParseReservationField(field, 1, 1); ok {
			t.Errorf("expected %q to be rejected", field)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, ref := range []SeatRef{
		{EventID: 1, VenueID: 1, RowNumber: "A", SeatNumber: "1"},
		{EventID: 9223372036854775807, VenueID: 0, RowNumber: "Balcony-2", SeatNumber: "101"},
		{EventID: 7, VenueID: 3, RowNumber: "ряд", SeatNumber: "5"},
	} {
		got, ok := ParseLockKey(ref.LockKey())
		if !ok || got != ref {
			t.Errorf("lock key round trip of %+v gave %+v ok=%v", ref, got, ok)
		}
		got, ok = ParseReservationField(ref.ReservationField(), ref.EventID, ref.VenueID)
		if !ok || got != ref {
			t.Errorf("field round trip of %+v gave %+v ok=%v", ref, got, ok)
		}
	}
}

func TestValidComponent(t *testing.T) {
	if !ValidComponent("A") || ValidComponent("") || ValidComponent("A_1") {
		t.Fatal("unexpected ValidComponent result")
	}
}

func FuzzParseLockKey(f *testing.F) {
	for _, seed := range []string{"seat:lock:1_2_A_7", "seat:lock:", "\xff\xfe", strings.Repeat("_", 64)} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, key string) {
		ref, ok := ParseLockKey(key)
		if ok {
			again, ok := ParseLockKey(ref.LockKey())
			if !ok || again != ref {
				t.Fatalf("parsed %q into %+v which does not survive a rebuild", key, ref)
			}
		}
		if _, ok := ParseReservationField(key, 1, 1); ok && strings.Count(key, "_") != 1 {
			t.Fatalf("field %q accepted with wrong separator count", key)
		}
	})
}
