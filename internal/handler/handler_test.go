package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-reservation/internal/keys"
	"github.com/iliyamo/seat-reservation/internal/middleware"
	"github.com/iliyamo/seat-reservation/internal/model"
)

type lockCall struct {
	eventID, venueID int64
	row, seat        string
	holder           string
}

type fakeService struct {
	states  []model.SeatState
	events  []model.Event
	err     error
	locks   []lockCall
	unlocks []lockCall
}

func (f *fakeService) Lock(ctx context.Context, eventID, venueID int64, row, seat, holderID string) error {
	f.locks = append(f.locks, lockCall{eventID, venueID, row, seat, holderID})
	return f.err
}

func (f *fakeService) Unlock(ctx context.Context, eventID, venueID int64, row, seat string) error {
	f.unlocks = append(f.unlocks, lockCall{eventID, venueID, row, seat, ""})
	return f.err
}

func (f *fakeService) GetSeats(ctx context.Context, eventID, venueID int64) ([]model.SeatState, error) {
	return f.states, f.err
}

func (f *fakeService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return f.events, f.err
}

func (f *fakeService) LockTTL() time.Duration { return 2 * time.Minute }

func newEcho(h *SeatHandler) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestIDs())
	e.GET("/v1/events", h.ListEvents)
	e.GET("/v1/seats/:eventId/:venueId", h.GetSeats)
	e.POST("/v1/seats/locks", h.Lock)
	e.DELETE("/v1/seats/locks", h.Unlock)
	return e
}

func do(e *echo.Echo, method, path, body string, setup ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, fn := range setup {
		fn(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetSeats(t *testing.T) {
	svc := &fakeService{states: []model.SeatState{
		{Seat: model.Seat{ID: 1, RowNumber: "A", SeatNumber: "1"}, Status: model.SeatHeld, HolderID: "abc"},
		{Seat: model.Seat{ID: 2, RowNumber: "A", SeatNumber: "2"}, Status: model.SeatAvailable},
		{Seat: model.Seat{ID: 3, RowNumber: "B", SeatNumber: "1"}, Status: model.SeatBooked, HolderID: "buyer"},
	}}
	rec := do(newEcho(&SeatHandler{Service: svc}), http.MethodGet, "/v1/seats/1/1", "",
		func(r *http.Request) { r.Header.Set(echo.HeaderXRequestID, "req-1") })
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Metadata Metadata   `json:"metadata"`
		Data     []SeatView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Metadata.RequestID != "req-1" {
		t.Fatalf("request id = %q", body.Metadata.RequestID)
	}
	want := []SeatView{
		{ID: 1, RowNumber: "A", SeatNumber: "1", Status: "HELD", GuestID: "abc"},
		{ID: 2, RowNumber: "A", SeatNumber: "2", Status: "AVAILABLE"},
		{ID: 3, RowNumber: "B", SeatNumber: "1", Status: "BOOKED", GuestID: "buyer"},
	}
	if len(body.Data) != len(want) {
		t.Fatalf("got %d seats", len(body.Data))
	}
	for i := range want {
		if body.Data[i] != want[i] {
			t.Errorf("[%d] got %+v, want %+v", i, body.Data[i], want[i])
		}
	}
	if strings.Contains(rec.Body.String(), `"guest_id":""`) {
		t.Fatal("available seats must omit guest_id")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: x", model.ErrSeatAlreadyLocked), http.StatusConflict},
		{fmt.Errorf("%w: x", model.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: x", model.ErrCatalogUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: x", model.ErrSerialization), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		e := newEcho(&SeatHandler{Service: &fakeService{err: tc.err}})
		if rec := do(e, http.MethodGet, "/v1/seats/1/1", ""); rec.Code != tc.code {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.code)
		}
	}
}

func TestLock(t *testing.T) {
	svc := &fakeService{}
	e := newEcho(&SeatHandler{Service: svc})

	rec := do(e, http.MethodPost, "/v1/seats/locks", `{"event_id":1,"venue_id":2,"row_number":"A","seat_number":"7","guest_id":"g-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.locks) != 1 || svc.locks[0] != (lockCall{1, 2, "A", "7", "g-1"}) {
		t.Fatalf("service calls %+v", svc.locks)
	}
	var body struct {
		Data LockView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Status != "HELD" || body.Data.TTLSeconds != 120 || body.Data.GuestID != "g-1" {
		t.Fatalf("unexpected body %+v", body.Data)
	}
}

func TestLockHolderFromToken(t *testing.T) {
	svc := &fakeService{}
	h := &SeatHandler{Service: svc}
	e := echo.New()
	e.POST("/v1/seats/locks", h.Lock, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.HolderKey, "token-user")
			return next(c)
		}
	})

	rec := do(e, http.MethodPost, "/v1/seats/locks", `{"event_id":1,"venue_id":2,"row_number":"A","seat_number":"7","guest_id":"spoofed"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	if svc.locks[0].holder != "token-user" {
		t.Fatalf("holder = %q, want token-user", svc.locks[0].holder)
	}
}

func TestLockValidation(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"event_id":0,"venue_id":2,"row_number":"A","seat_number":"7","guest_id":"g"}`,
		`{"event_id":1,"venue_id":-1,"row_number":"A","seat_number":"7","guest_id":"g"}`,
		`{"event_id":1,"venue_id":2,"row_number":"","seat_number":"7","guest_id":"g"}`,
		`{"event_id":1,"venue_id":2,"row_number":"A_B","seat_number":"7","guest_id":"g"}`,
		`{"event_id":1,"venue_id":2,"row_number":"A","seat_number":"7_1","guest_id":"g"}`,
		`{"event_id":1,"venue_id":2,"row_number":"A","seat_number":"7"}`,
	}
	svc := &fakeService{}
	e := newEcho(&SeatHandler{Service: svc})
	for _, b := range bodies {
		if rec := do(e, http.MethodPost, "/v1/seats/locks", b); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", b, rec.Code)
		}
	}
	if len(svc.locks) != 0 {
		t.Fatalf("service called for invalid input: %+v", svc.locks)
	}
}

func TestLockConflict(t *testing.T) {
	e := newEcho(&SeatHandler{Service: &fakeService{err: model.ErrSeatAlreadyLocked}})
	rec := do(e, http.MethodPost, "/v1/seats/locks", `{"event_id":1,"venue_id":2,"row_number":"A","seat_number":"7","guest_id":"g"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", rec.Code)
	}
}

func TestUnlock(t *testing.T) {
	svc := &fakeService{}
	e := newEcho(&SeatHandler{Service: svc})
	rec := do(e, http.MethodDelete, "/v1/seats/locks", `{"event_id":1,"venue_id":2,"row_number":"A","seat_number":"7"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.unlocks) != 1 || svc.unlocks[0].row != "A" {
		t.Fatalf("service calls %+v", svc.unlocks)
	}
	if !strings.Contains(rec.Body.String(), `"status":"AVAILABLE"`) {
		t.Fatalf("body %s", rec.Body.String())
	}
}

func TestListEvents(t *testing.T) {
	at := time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)
	svc := &fakeService{events: []model.Event{{ID: 4, Name: "Gala", Type: "CONCERT", DateTime: at, VenueID: 7}}}
	rec := do(newEcho(&SeatHandler{Service: svc}), http.MethodGet, "/v1/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"date_time":"2025-06-01T19:30:00Z"`) {
		t.Fatalf("body %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	if rec := do(e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestStreamRelaysNotifications(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	e := echo.New()
	e.GET("/v1/seats/:eventId/:venueId/stream", (&StreamHandler{Redis: rdb}).Stream)
	srv := httptest.NewServer(e)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/seats/1/2/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	channel := keys.Channel(1, 2)
	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(channel)[channel] == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	mr.Publish(channel, `garbage`)
	mr.Publish(channel, `[2,"A","1","abc"]`)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		want := StreamEvent{Status: "HELD", RowNumber: "A", SeatNumber: "1", GuestID: "abc"}
		if ev != want {
			t.Fatalf("got %+v, want %+v", ev, want)
		}
		return
	}
	t.Fatalf("stream ended without data: %v", scanner.Err())
}

func TestStreamBadIDs(t *testing.T) {
	e := echo.New()
	e.GET("/v1/seats/:eventId/:venueId/stream", (&StreamHandler{}).Stream)
	if rec := do(e, http.MethodGet, "/v1/seats/x/2/stream", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}
