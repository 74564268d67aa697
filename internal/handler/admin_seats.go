package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/evencore/seat-reservation/internal/model"
	"github.com/evencore/seat-reservation/internal/repository"
)

// InventoryAdmin is the write side of the seat inventory used by the
// floor-plan administration endpoints.
type InventoryAdmin interface {
	CreateBulk(ctx context.Context, seats []model.Seat) error
	SetAvailability(ctx context.Context, eventID, seatID uint64, available bool) error
}

// AdminSeatHandler serves the floor-plan administration endpoints:
// generating a seat grid for an event and toggling a seat's hard
// availability (e.g. blocking a broken seat).
type AdminSeatHandler struct {
	Inventory InventoryAdmin
}

// NewAdminSeatHandler constructs an AdminSeatHandler.
func NewAdminSeatHandler(inv InventoryAdmin) *AdminSeatHandler {
	if inv == nil {
		panic("nil inventory passed to NewAdminSeatHandler")
	}
	return &AdminSeatHandler{Inventory: inv}
}

type sectionSpec struct {
	Name        string  `json:"name"`
	Rows        int     `json:"rows"`
	SeatsPerRow int     `json:"seatsPerRow"`
	SeatType    string  `json:"seatType"`
	BasePrice   uint32  `json:"basePrice"`
	StartX      float64 `json:"startX"`
	StartY      float64 `json:"startY"`
}

// rowLabel converts a zero-based row index to a spreadsheet-style
// label: A..Z, AA..AZ and so on.
func rowLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}

// GenerateSeats handles POST /v1/events/:id/seats/generate.  The event
// organiser describes the venue as a list of sections, each a grid of
// rows; one inventory row is created per seat with coordinates laid out
// on a fixed-pitch grid for the seat-map renderer.
func (h *AdminSeatHandler) GenerateSeats(c echo.Context) error {
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		Sections []sectionSpec `json:"sections"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Sections) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sections array is required"})
	}

	const pitch = 30.0 // grid spacing in seat-map units
	seats := make([]model.Seat, 0)
	yOffset := 0.0
	for _, sec := range body.Sections {
		if sec.Name == "" || sec.Rows <= 0 || sec.SeatsPerRow <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "each section needs a name, rows > 0 and seatsPerRow > 0",
			})
		}
		seatType := sec.SeatType
		if seatType == "" {
			seatType = "standard"
		}
		for row := 0; row < sec.Rows; row++ {
			for num := 0; num < sec.SeatsPerRow; num++ {
				seats = append(seats, model.Seat{
					EventID:        eventID,
					Section:        sec.Name,
					RowNumber:      rowLabel(row),
					SeatNumber:     uint32(num + 1),
					SeatType:       seatType,
					BasePriceCents: sec.BasePrice,
					XCoordinate:    sec.StartX + float64(num)*pitch,
					YCoordinate:    sec.StartY + yOffset + float64(row)*pitch,
					IsAvailable:    true,
				})
			}
		}
		yOffset += float64(sec.Rows)*pitch + pitch
	}

	if err := h.Inventory.CreateBulk(c.Request().Context(), seats); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate seats"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":      true,
		"seatsCreated": len(seats),
	})
}

// SetSeatAvailability handles PATCH /v1/events/:id/seats/:seatId.  It
// flips the hard-availability flag of one seat.  Blocking a seat does
// not touch existing reservations; it only prevents new holds.
func (h *AdminSeatHandler) SetSeatAvailability(c echo.Context) error {
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	seatID, err := strconv.ParseUint(c.Param("seatId"), 10, 64)
	if err != nil || seatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var body struct {
		Available *bool `json:"available"`
	}
	if err := c.Bind(&body); err != nil || body.Available == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "available flag is required"})
	}

	err = h.Inventory.SetAvailability(c.Request().Context(), eventID, seatID, *body.Available)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update seat"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"seatId":    seatID,
		"available": *body.Available,
	})
}
