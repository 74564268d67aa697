package model

import "time"

// Reservation status values.  A seat is unavailable to other buyers while
// a reservation for it is in a live status: RESERVED, LOCKED, or
// CONFIRMED with an expiry that has not passed (CONFIRMED rows carry a
// nil expiry and stay live forever).  EXPIRED and CANCELLED are terminal
// and release the seat.
const (
	StatusReserved  = "RESERVED"
	StatusLocked    = "LOCKED"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
)

// Payment status values carried on a reservation.  The payment flow
// itself is an external collaborator; this core only records its outcome.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// Reservation records one seat-hold attempt.  Each row covers a single
// seat; holding several seats at once creates one row per seat sharing
// the same holder key and expiry.  Rows are never deleted – terminal
// statuses keep them as an audit trail.
//
// Fields:
//  ID             – primary key identifier.
//  EventID        – event the seat belongs to.
//  SeatID         – seat being held.
//  UserID         – authenticated holder, when known (nullable).
//  HolderKey      – opaque holder identity: the user's email for
//                   authenticated holds, otherwise the client-supplied
//                   reservation key for anonymous checkout.
//  Status         – one of the Status* constants above.
//  ExpiresAt      – when the hold lapses; nil once CONFIRMED.
//  PricePaidCents – seat price captured at hold time.
//  PaymentStatus  – one of the Payment* constants.
//  RegistrationID – registration attached on confirmation (nullable).
//  TenantID       – owning tenant, resolved by the host application.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Reservation struct {
	ID             uint64     `json:"id"`
	EventID        uint64     `json:"eventId"`
	SeatID         uint64     `json:"seatId"`
	UserID         *uint64    `json:"userId,omitempty"`
	HolderKey      string     `json:"owner,omitempty"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	PricePaidCents uint32     `json:"pricePaid"`
	PaymentStatus  string     `json:"paymentStatus"`
	RegistrationID *string    `json:"registrationId,omitempty"`
	TenantID       string     `json:"tenantId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"-"`
}

// IsLive reports whether the reservation blocks other holds on its seat
// at the given instant.
func (r *Reservation) IsLive(now time.Time) bool {
	switch r.Status {
	case StatusReserved, StatusLocked, StatusConfirmed:
	default:
		return false
	}
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}
