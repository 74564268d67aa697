package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evencore/seat-reservation/internal/model"
	"github.com/evencore/seat-reservation/internal/reservation"
)

// fakeReserver scripts the manager's responses and records what the
// handlers asked for.
type fakeReserver struct {
	holdResult  *reservation.HoldResult
	holdErr     error
	confirmErr  error
	released    []uint64
	releaseErr  error
	swept       []uint64
	sweepCalls  int
	gotSeatIDs  []uint64
	gotHolder   reservation.Holder
	gotKey      string
	gotRegID    string
	gotPayState string
	now         time.Time
}

func (f *fakeReserver) RequestHold(ctx context.Context, eventID uint64, seatIDs []uint64, holder reservation.Holder) (*reservation.HoldResult, error) {
	f.gotSeatIDs = seatIDs
	f.gotHolder = holder
	return f.holdResult, f.holdErr
}

func (f *fakeReserver) ConfirmHold(ctx context.Context, eventID uint64, seatIDs []uint64, registrationID, paymentStatus string) error {
	f.gotSeatIDs = seatIDs
	f.gotRegID = registrationID
	f.gotPayState = paymentStatus
	return f.confirmErr
}

func (f *fakeReserver) ReleaseHold(ctx context.Context, eventID uint64, seatIDs []uint64, holderKey string) ([]uint64, error) {
	f.gotSeatIDs = seatIDs
	f.gotKey = holderKey
	return f.released, f.releaseErr
}

func (f *fakeReserver) SweepExpired(ctx context.Context, eventID uint64) ([]uint64, error) {
	f.sweepCalls++
	return f.swept, nil
}

func (f *fakeReserver) Now() time.Time { return f.now }

type fakeInventory struct {
	seats []model.Seat
}

func (f *fakeInventory) ListByEvent(ctx context.Context, eventID uint64, section, seatType string) ([]model.Seat, error) {
	return f.seats, nil
}

type fakeLedger struct {
	live    map[uint64]model.Reservation
	history []model.Reservation
}

func (f *fakeLedger) LiveByEvent(ctx context.Context, eventID uint64, now time.Time) (map[uint64]model.Reservation, error) {
	return f.live, nil
}

func (f *fakeLedger) ListByEvent(ctx context.Context, eventID uint64) ([]model.Reservation, error) {
	return f.history, nil
}

func newSeatTestServer(r *fakeReserver, inv *fakeInventory, led *fakeLedger) (*echo.Echo, *SeatHandler) {
	if inv == nil {
		inv = &fakeInventory{}
	}
	if led == nil {
		led = &fakeLedger{}
	}
	h := NewSeatHandler(r, inv, led)
	e := echo.New()
	return e, h
}

func doJSON(e *echo.Echo, method, path, body string, h echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	_ = h(c)
	return rec
}

func TestReserveSeatsReturnsHoldDetails(t *testing.T) {
	expires := time.Date(2025, 6, 1, 12, 10, 0, 0, time.UTC)
	fr := &fakeReserver{
		holdResult: &reservation.HoldResult{
			Reservations: []model.Reservation{
				{ID: 1, EventID: 42, SeatID: 10, Status: model.StatusReserved, PricePaidCents: 2500},
			},
			Seats:           []model.Seat{{ID: 10, EventID: 42, BasePriceCents: 2500}},
			TotalPriceCents: 2500,
			ExpiresAt:       expires,
		},
	}
	e, h := newSeatTestServer(fr, nil, nil)

	rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/reserve",
		`{"seatIds":[10],"reservationKey":"guest-key"}`, h.ReserveSeats, "id", "42")

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2500), body["totalPrice"])
	assert.Equal(t, "2025-06-01T12:10:00Z", body["expiresAt"])
	assert.Equal(t, "guest-key", body["owner"])
	assert.Len(t, body["reservations"], 1)
	assert.Len(t, body["seats"], 1)

	assert.Equal(t, []uint64{10}, fr.gotSeatIDs)
	assert.Equal(t, "guest-key", fr.gotHolder.Key)
}

func TestReserveSeatsGeneratesOwnerKeyForAnonymous(t *testing.T) {
	fr := &fakeReserver{holdResult: &reservation.HoldResult{}}
	e, h := newSeatTestServer(fr, nil, nil)

	rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/reserve",
		`{"seatIds":[10]}`, h.ReserveSeats, "id", "42")

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	owner, _ := body["owner"].(string)
	assert.NotEmpty(t, owner, "anonymous callers get a generated owner key")
	assert.Equal(t, owner, fr.gotHolder.Key)
}

func TestReserveSeatsConflictNamesBlockingSeats(t *testing.T) {
	fr := &fakeReserver{
		holdErr: &reservation.SeatUnavailableError{Seats: []reservation.SeatConflict{
			{ID: 10, Reason: reservation.ReasonReserved},
			{ID: 11, Reason: reservation.ReasonNotFound},
		}},
	}
	e, h := newSeatTestServer(fr, nil, nil)

	rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/reserve",
		`{"seatIds":[10,11]}`, h.ReserveSeats, "id", "42")

	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error            string `json:"error"`
		UnavailableSeats []struct {
			ID     uint64 `json:"id"`
			Reason string `json:"reason"`
		} `json:"unavailableSeats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Some seats are no longer available", body.Error)
	require.Len(t, body.UnavailableSeats, 2)
	assert.Equal(t, "Reserved", body.UnavailableSeats[0].Reason)
	assert.Equal(t, "Not found", body.UnavailableSeats[1].Reason)
}

func TestReserveSeatsValidation(t *testing.T) {
	tests := []struct {
		name    string
		eventID string
		body    string
	}{
		{"bad event id", "abc", `{"seatIds":[1]}`},
		{"zero event id", "0", `{"seatIds":[1]}`},
		{"missing seatIds", "42", `{}`},
		{"empty seatIds", "42", `{"seatIds":[]}`},
		{"malformed body", "42", `{"seatIds":`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fr := &fakeReserver{holdResult: &reservation.HoldResult{}}
			e, h := newSeatTestServer(fr, nil, nil)
			rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/reserve",
				tc.body, h.ReserveSeats, "id", tc.eventID)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestReleaseSeatsIsIdempotent(t *testing.T) {
	fr := &fakeReserver{released: []uint64{10}}
	e, h := newSeatTestServer(fr, nil, nil)

	rec := doJSON(e, http.MethodDelete, "/v1/events/:id/seats/reserve",
		`{"seatIds":[10],"reservationKey":"guest-key"}`, h.ReleaseSeats, "id", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["released"])
	assert.Equal(t, "guest-key", fr.gotKey)

	// Nothing left to release still returns 200.
	fr.released = nil
	rec = doJSON(e, http.MethodDelete, "/v1/events/:id/seats/reserve",
		`{"seatIds":[10],"reservationKey":"guest-key"}`, h.ReleaseSeats, "id", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["released"])
}

func TestConfirmSeatsRequiresRegistrationID(t *testing.T) {
	fr := &fakeReserver{}
	e, h := newSeatTestServer(fr, nil, nil)

	rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/confirm",
		`{"seatIds":[10]}`, h.ConfirmSeats, "id", "42")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmSeatsLapsedHoldConflicts(t *testing.T) {
	fr := &fakeReserver{confirmErr: reservation.ErrHoldExpiredOrMissing}
	e, h := newSeatTestServer(fr, nil, nil)

	rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/confirm",
		`{"seatIds":[10],"registrationId":"reg-1"}`, h.ConfirmSeats, "id", "42")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmSeatsPassesPaymentOutcome(t *testing.T) {
	fr := &fakeReserver{}
	e, h := newSeatTestServer(fr, nil, nil)

	rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/confirm",
		`{"seatIds":[10,11],"registrationId":"reg-1","paymentStatus":"COMPLETED"}`,
		h.ConfirmSeats, "id", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reg-1", fr.gotRegID)
	assert.Equal(t, "COMPLETED", fr.gotPayState)
	assert.Equal(t, []uint64{10, 11}, fr.gotSeatIDs)
}

func TestAvailabilitySweepsAndOverlaysLiveHolds(t *testing.T) {
	expires := time.Date(2025, 6, 1, 12, 10, 0, 0, time.UTC)
	fr := &fakeReserver{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	inv := &fakeInventory{seats: []model.Seat{
		{ID: 1, EventID: 42, Section: "Orchestra", RowNumber: "A", SeatNumber: 1, IsAvailable: true},
		{ID: 2, EventID: 42, Section: "Orchestra", RowNumber: "A", SeatNumber: 2, IsAvailable: true},
		{ID: 3, EventID: 42, Section: "Balcony", RowNumber: "B", SeatNumber: 1, IsAvailable: false},
	}}
	led := &fakeLedger{live: map[uint64]model.Reservation{
		2: {SeatID: 2, Status: model.StatusReserved, HolderKey: "alice", ExpiresAt: &expires},
	}}
	e, h := newSeatTestServer(fr, inv, led)

	rec := doJSON(e, http.MethodGet, "/v1/events/:id/seats/availability", "", h.Availability, "id", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fr.sweepCalls, "availability must sweep before listing")

	var body struct {
		Seats []struct {
			ID                uint64 `json:"id"`
			Available         bool   `json:"available"`
			ReservationStatus string `json:"reservationStatus"`
			ReservedBy        string `json:"reservedBy"`
		} `json:"seats"`
		GroupedSeats   map[string]map[string][]json.RawMessage `json:"groupedSeats"`
		TotalSeats     int                                     `json:"totalSeats"`
		AvailableSeats int                                     `json:"availableSeats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 3, body.TotalSeats)
	assert.Equal(t, 1, body.AvailableSeats, "held and blocked seats are not available")

	require.Len(t, body.Seats, 3)
	assert.True(t, body.Seats[0].Available)
	assert.False(t, body.Seats[1].Available)
	assert.Equal(t, model.StatusReserved, body.Seats[1].ReservationStatus)
	assert.Equal(t, "alice", body.Seats[1].ReservedBy)
	assert.False(t, body.Seats[2].Available)
	assert.Empty(t, body.Seats[2].ReservationStatus)

	require.Contains(t, body.GroupedSeats, "Orchestra")
	require.Contains(t, body.GroupedSeats, "Balcony")
	assert.Len(t, body.GroupedSeats["Orchestra"]["A"], 2)
	assert.Len(t, body.GroupedSeats["Balcony"]["B"], 1)
}

func TestListReservationsReturnsHistory(t *testing.T) {
	fr := &fakeReserver{}
	led := &fakeLedger{history: []model.Reservation{
		{ID: 2, SeatID: 1, Status: model.StatusReserved},
		{ID: 1, SeatID: 1, Status: model.StatusExpired},
	}}
	e, h := newSeatTestServer(fr, nil, led)

	rec := doJSON(e, http.MethodGet, "/v1/events/:id/reservations", "", h.ListReservations, "id", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []model.Reservation `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, uint64(2), body.Items[0].ID)
}
