package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/evencore/seat-reservation/internal/middleware"
	"github.com/evencore/seat-reservation/internal/model"
	"github.com/evencore/seat-reservation/internal/reservation"
)

// Reserver is the slice of the reservation manager the seat handlers
// need.  Defined here so handler tests can substitute a fake.
type Reserver interface {
	RequestHold(ctx context.Context, eventID uint64, seatIDs []uint64, holder reservation.Holder) (*reservation.HoldResult, error)
	ConfirmHold(ctx context.Context, eventID uint64, seatIDs []uint64, registrationID, paymentStatus string) error
	ReleaseHold(ctx context.Context, eventID uint64, seatIDs []uint64, holderKey string) ([]uint64, error)
	SweepExpired(ctx context.Context, eventID uint64) ([]uint64, error)
	Now() time.Time
}

// InventoryStore is the read side of the seat inventory used by the
// availability listing.
type InventoryStore interface {
	ListByEvent(ctx context.Context, eventID uint64, section, seatType string) ([]model.Seat, error)
}

// LedgerReader exposes the ledger queries the availability and audit
// views need.
type LedgerReader interface {
	LiveByEvent(ctx context.Context, eventID uint64, now time.Time) (map[uint64]model.Reservation, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Reservation, error)
}

// SeatHandler serves the public seat-reservation endpoints: hold,
// release, confirm and availability.  Identity and tenant middleware
// run before these handlers; payment and registration live in external
// collaborators that call the confirm endpoint.
type SeatHandler struct {
	Manager   Reserver
	Inventory InventoryStore
	Ledger    LedgerReader
}

// NewSeatHandler constructs a SeatHandler.  All dependencies must be
// non-nil.
func NewSeatHandler(m Reserver, inv InventoryStore, ledger LedgerReader) *SeatHandler {
	if m == nil || inv == nil || ledger == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Manager: m, Inventory: inv, Ledger: ledger}
}

func eventIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// holderFromRequest resolves the hold owner: the authenticated user's
// email when a token was presented, otherwise the client-supplied
// reservation key.  Anonymous callers without a key get a generated one
// so they can still release their own hold later.
func holderFromRequest(c echo.Context, reservationKey string) reservation.Holder {
	userID, email := middleware.CurrentUser(c)
	key := email
	if key == "" {
		key = reservationKey
	}
	if key == "" {
		key = uuid.NewString()
	}
	return reservation.Holder{
		UserID:   userID,
		Key:      key,
		TenantID: middleware.TenantID(c),
	}
}

// ReserveSeats handles POST /v1/events/:id/seats/reserve.  It places a
// time-boxed hold on the requested seats, all or nothing.  On success
// it returns 201 with the created reservations, the held seats, the
// total price and the expiry.  When any seat is taken it returns 409
// naming the conflicting seats so the client can re-pick.
func (h *SeatHandler) ReserveSeats(c echo.Context) error {
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		SeatIDs        []uint64 `json:"seatIds"`
		ReservationKey string   `json:"reservationKey"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seatIds array is required"})
	}

	holder := holderFromRequest(c, body.ReservationKey)
	result, err := h.Manager.RequestHold(c.Request().Context(), eventID, body.SeatIDs, holder)
	if err != nil {
		if errors.Is(err, reservation.ErrEmptySeatSet) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid seat IDs provided"})
		}
		if se, ok := reservation.AsSeatUnavailable(err); ok {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":            "Some seats are no longer available",
				"unavailableSeats": se.Seats,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reserve seats"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":      true,
		"reservations": result.Reservations,
		"seats":        result.Seats,
		"totalPrice":   result.TotalPriceCents,
		"expiresAt":    result.ExpiresAt.Format(time.RFC3339),
		"owner":        holder.Key,
	})
}

// ReleaseSeats handles DELETE /v1/events/:id/seats/reserve.  It cancels
// the caller's live holds on the given seats.  Releasing seats that are
// not held (already expired, already released, confirmed) is a no-op,
// so repeated calls always return 200.
func (h *SeatHandler) ReleaseSeats(c echo.Context) error {
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		SeatIDs        []uint64 `json:"seatIds"`
		ReservationKey string   `json:"reservationKey"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seatIds array is required"})
	}

	// Ownership check only when the caller identifies itself; the host
	// application's admin tooling releases without a key.
	_, email := middleware.CurrentUser(c)
	holderKey := email
	if holderKey == "" {
		holderKey = body.ReservationKey
	}

	released, err := h.Manager.ReleaseHold(c.Request().Context(), eventID, body.SeatIDs, holderKey)
	if err != nil {
		if errors.Is(err, reservation.ErrEmptySeatSet) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid seat IDs provided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release seats"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"released": len(released),
	})
}

// ConfirmSeats handles POST /v1/events/:id/seats/confirm.  The
// registration/payment completion flow calls it to finalise the buyer's
// holds.  A hold that lapsed while payment was in flight fails the
// whole confirmation with 409 and the caller must restart the flow.
func (h *SeatHandler) ConfirmSeats(c echo.Context) error {
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		SeatIDs        []uint64 `json:"seatIds"`
		RegistrationID string   `json:"registrationId"`
		PaymentStatus  string   `json:"paymentStatus"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seatIds array is required"})
	}
	if body.RegistrationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "registrationId is required"})
	}

	err := h.Manager.ConfirmHold(c.Request().Context(), eventID, body.SeatIDs, body.RegistrationID, body.PaymentStatus)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrEmptySeatSet):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid seat IDs provided"})
		case errors.Is(err, reservation.ErrHoldExpiredOrMissing):
			return c.JSON(http.StatusConflict, echo.Map{"error": "hold expired or missing"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm seats"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"seatIds":        body.SeatIDs,
		"registrationId": body.RegistrationID,
	})
}

// seatAvailability is one row of the availability listing: the seat
// plus the live reservation overlay.
type seatAvailability struct {
	model.Seat
	Available         bool       `json:"available"`
	ReservationStatus string     `json:"reservationStatus,omitempty"`
	ReservedBy        string     `json:"reservedBy,omitempty"`
	HoldExpiresAt     *time.Time `json:"holdExpiresAt,omitempty"`
}

// Availability handles GET /v1/events/:id/seats/availability.  It
// sweeps expired holds first so stale RESERVED rows never appear taken,
// then returns every seat with its live reservation state, grouped by
// section and row for the seat-map renderer.  Optional ?section= and
// ?ticketClass= filters narrow the listing.
func (h *SeatHandler) Availability(c echo.Context) error {
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()

	if _, err := h.Manager.SweepExpired(ctx, eventID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to refresh availability"})
	}

	seats, err := h.Inventory.ListByEvent(ctx, eventID,
		c.QueryParam("section"), c.QueryParam("ticketClass"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	live, err := h.Ledger.LiveByEvent(ctx, eventID, h.Manager.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}

	out := make([]seatAvailability, 0, len(seats))
	grouped := make(map[string]map[string][]seatAvailability)
	availableCount := 0
	for _, s := range seats {
		entry := seatAvailability{Seat: s, Available: s.IsAvailable}
		if res, held := live[s.ID]; held {
			entry.Available = false
			entry.ReservationStatus = res.Status
			entry.ReservedBy = res.HolderKey
			entry.HoldExpiresAt = res.ExpiresAt
		}
		if entry.Available {
			availableCount++
		}
		out = append(out, entry)

		section := s.Section
		if section == "" {
			section = "General"
		}
		if grouped[section] == nil {
			grouped[section] = make(map[string][]seatAvailability)
		}
		grouped[section][s.RowNumber] = append(grouped[section][s.RowNumber], entry)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"seats":          out,
		"groupedSeats":   grouped,
		"totalSeats":     len(out),
		"availableSeats": availableCount,
	})
}

// ListReservations handles GET /v1/events/:id/reservations.  It returns
// the event's full hold history, newest first, including terminal rows;
// the ledger is the audit trail and rows are never deleted.
func (h *SeatHandler) ListReservations(c echo.Context) error {
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	items, err := h.Ledger.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
