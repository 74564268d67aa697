package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evencore/seat-reservation/internal/model"
	"github.com/evencore/seat-reservation/internal/repository"
)

type fakeInventoryAdmin struct {
	created      []model.Seat
	createErr    error
	availability map[uint64]bool
	setErr       error
}

func (f *fakeInventoryAdmin) CreateBulk(ctx context.Context, seats []model.Seat) error {
	f.created = append(f.created, seats...)
	return f.createErr
}

func (f *fakeInventoryAdmin) SetAvailability(ctx context.Context, eventID, seatID uint64, available bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.availability == nil {
		f.availability = make(map[uint64]bool)
	}
	f.availability[seatID] = available
	return nil
}

func TestGenerateSeatsBuildsSectionGrids(t *testing.T) {
	inv := &fakeInventoryAdmin{}
	h := NewAdminSeatHandler(inv)
	e, _ := newSeatTestServer(&fakeReserver{}, nil, nil)

	body := `{"sections":[
		{"name":"Orchestra","rows":2,"seatsPerRow":3,"seatType":"premium","basePrice":5000},
		{"name":"Balcony","rows":1,"seatsPerRow":2,"basePrice":2000}
	]}`
	rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/generate", body, h.GenerateSeats, "id", "42")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(8), resp["seatsCreated"])
	require.Len(t, inv.created, 8)

	first := inv.created[0]
	assert.Equal(t, uint64(42), first.EventID)
	assert.Equal(t, "Orchestra", first.Section)
	assert.Equal(t, "A", first.RowNumber)
	assert.Equal(t, uint32(1), first.SeatNumber)
	assert.Equal(t, "premium", first.SeatType)
	assert.Equal(t, uint32(5000), first.BasePriceCents)
	assert.True(t, first.IsAvailable)

	// Second row of the first section and the default seat type of the
	// second section.
	assert.Equal(t, "B", inv.created[3].RowNumber)
	assert.Equal(t, "standard", inv.created[6].SeatType)
	assert.Equal(t, "Balcony", inv.created[6].Section)

	// Sections stack vertically so the seat map does not overlap.
	assert.Greater(t, inv.created[6].YCoordinate, inv.created[3].YCoordinate)
}

func TestGenerateSeatsRejectsBadSections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no sections", `{"sections":[]}`},
		{"missing name", `{"sections":[{"rows":1,"seatsPerRow":1}]}`},
		{"zero rows", `{"sections":[{"name":"A","rows":0,"seatsPerRow":1}]}`},
		{"zero seats per row", `{"sections":[{"name":"A","rows":1,"seatsPerRow":0}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := &fakeInventoryAdmin{}
			h := NewAdminSeatHandler(inv)
			e, _ := newSeatTestServer(&fakeReserver{}, nil, nil)
			rec := doJSON(e, http.MethodPost, "/v1/events/:id/seats/generate", tc.body, h.GenerateSeats, "id", "42")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, inv.created)
		})
	}
}

func TestSetSeatAvailability(t *testing.T) {
	inv := &fakeInventoryAdmin{}
	h := NewAdminSeatHandler(inv)
	e, _ := newSeatTestServer(&fakeReserver{}, nil, nil)

	rec := doJSON(e, http.MethodPatch, "/v1/events/:id/seats/:seatId",
		`{"available":false}`, h.SetSeatAvailability, "id", "42", "seatId", "7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, inv.availability[7])

	// Missing flag is a validation error, not "set to false".
	rec = doJSON(e, http.MethodPatch, "/v1/events/:id/seats/:seatId",
		`{}`, h.SetSeatAvailability, "id", "42", "seatId", "7")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetSeatAvailabilityUnknownSeat(t *testing.T) {
	inv := &fakeInventoryAdmin{setErr: repository.ErrSeatNotFound}
	h := NewAdminSeatHandler(inv)
	e, _ := newSeatTestServer(&fakeReserver{}, nil, nil)

	rec := doJSON(e, http.MethodPatch, "/v1/events/:id/seats/:seatId",
		`{"available":true}`, h.SetSeatAvailability, "id", "42", "seatId", "999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", rowLabel(0))
	assert.Equal(t, "Z", rowLabel(25))
	assert.Equal(t, "AA", rowLabel(26))
	assert.Equal(t, "AZ", rowLabel(51))
	assert.Equal(t, "BA", rowLabel(52))
}
