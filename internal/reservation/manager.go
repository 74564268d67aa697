// Package reservation implements the seat-hold state machine: time-boxed
// holds, confirmation, release and lazy expiry.  The Manager is the sole
// authority for changing seat-hold state; every mutation runs inside a
// single ledger transaction whose check-then-write sequence is backed by
// the storage layer's one-live-reservation-per-seat unique index, so two
// racing hold requests for the same seat produce exactly one winner.
package reservation

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/evencore/seat-reservation/internal/broadcast"
	"github.com/evencore/seat-reservation/internal/clock"
	"github.com/evencore/seat-reservation/internal/model"
	"github.com/evencore/seat-reservation/internal/repository"
)

// DefaultHoldTTL is how long a hold blocks a seat before lapsing.
const DefaultHoldTTL = 10 * time.Minute

// Ledger is the durable reservation store the manager mutates.  All
// methods called inside WithTx share one transaction; the
// check-then-insert sequence relies on that plus the store's unique
// index over live rows.
type Ledger interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ExpireStale(ctx context.Context, eventID uint64, now time.Time) ([]uint64, error)
	LiveBySeats(ctx context.Context, eventID uint64, seatIDs []uint64, now time.Time) ([]model.Reservation, error)
	CreateHolds(ctx context.Context, holds []*model.Reservation) error
	ConfirmBySeats(ctx context.Context, eventID uint64, seatIDs []uint64, registrationID, paymentStatus string, now time.Time) ([]uint64, error)
	CancelBySeats(ctx context.Context, eventID uint64, seatIDs []uint64, holderKey string) ([]uint64, error)
}

// SeatStore is the read side of the seat inventory.
type SeatStore interface {
	GetByEventAndIDs(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.Seat, error)
}

// Holder identifies who owns a hold: the authenticated user when one is
// present, otherwise an opaque client-supplied reservation key.  The key
// attributes the hold and gates its later release; it is not a security
// boundary.
type Holder struct {
	UserID   *uint64
	Key      string
	TenantID string
}

// HoldResult is returned by a successful RequestHold.
type HoldResult struct {
	Reservations    []model.Reservation
	Seats           []model.Seat
	TotalPriceCents uint32
	ExpiresAt       time.Time
}

// Manager coordinates holds over the ledger and seat inventory and
// broadcasts advisory state changes after each committed mutation.
type Manager struct {
	ledger    Ledger
	seats     SeatStore
	publisher broadcast.Publisher
	clock     clock.Clock
	holdTTL   time.Duration
}

// Option customises a Manager.
type Option func(*Manager)

// WithHoldTTL overrides the default hold duration.
func WithHoldTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.holdTTL = d
		}
	}
}

// WithClock injects a clock, used by tests to drive expiry.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// NewManager constructs a Manager.  ledger and seats must be non-nil;
// publisher may be nil to disable broadcasting.
func NewManager(ledger Ledger, seats SeatStore, publisher broadcast.Publisher, opts ...Option) *Manager {
	if ledger == nil || seats == nil {
		panic("nil dependency passed to NewManager")
	}
	if publisher == nil {
		publisher = broadcast.NopPublisher{}
	}
	m := &Manager{
		ledger:    ledger,
		seats:     seats,
		publisher: publisher,
		clock:     clock.NewSystem(),
		holdTTL:   DefaultHoldTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HoldTTL reports the configured hold duration.
func (m *Manager) HoldTTL() time.Duration { return m.holdTTL }

// RequestHold places a time-boxed hold on every seat in seatIDs for the
// given holder, or on none of them.  Inside one transaction it sweeps
// expired holds, verifies that each seat exists, is hard-available and
// carries no live reservation, then inserts one RESERVED row per seat
// priced at the seat's current base price.  A conflicting seat fails the
// whole request with a SeatUnavailableError naming the blockers.
func (m *Manager) RequestHold(ctx context.Context, eventID uint64, seatIDs []uint64, holder Holder) (*HoldResult, error) {
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return nil, ErrEmptySeatSet
	}

	now := m.clock.Now()
	expiresAt := now.Add(m.holdTTL)
	var (
		result  HoldResult
		swept   []uint64
		created []uint64
	)

	err := m.ledger.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		swept, err = m.ledger.ExpireStale(txCtx, eventID, now)
		if err != nil {
			return err
		}

		seats, err := m.seats.GetByEventAndIDs(txCtx, eventID, unique)
		if err != nil {
			return err
		}
		seatByID := make(map[uint64]model.Seat, len(seats))
		for _, s := range seats {
			seatByID[s.ID] = s
		}

		live, err := m.ledger.LiveBySeats(txCtx, eventID, unique, now)
		if err != nil {
			return err
		}
		held := make(map[uint64]struct{}, len(live))
		for _, res := range live {
			held[res.SeatID] = struct{}{}
		}

		var conflicts []SeatConflict
		for _, id := range unique {
			seat, ok := seatByID[id]
			switch {
			case !ok:
				conflicts = append(conflicts, SeatConflict{ID: id, Reason: ReasonNotFound})
			case !seat.IsAvailable:
				conflicts = append(conflicts, SeatConflict{ID: id, Reason: ReasonUnavailable})
			default:
				if _, taken := held[id]; taken {
					conflicts = append(conflicts, SeatConflict{ID: id, Reason: ReasonReserved})
				}
			}
		}
		if len(conflicts) > 0 {
			return &SeatUnavailableError{Seats: conflicts}
		}

		holds := make([]*model.Reservation, 0, len(unique))
		var total uint32
		orderedSeats := make([]model.Seat, 0, len(unique))
		for _, id := range unique {
			seat := seatByID[id]
			orderedSeats = append(orderedSeats, seat)
			total += seat.BasePriceCents
			exp := expiresAt
			holds = append(holds, &model.Reservation{
				EventID:        eventID,
				SeatID:         id,
				UserID:         holder.UserID,
				HolderKey:      holder.Key,
				Status:         model.StatusReserved,
				ExpiresAt:      &exp,
				PricePaidCents: seat.BasePriceCents,
				PaymentStatus:  model.PaymentPending,
				TenantID:       holder.TenantID,
				CreatedAt:      now,
			})
		}

		// Insert in ascending seat order so two overlapping multi-seat
		// requests always take their row locks in the same order and
		// cannot deadlock each other.  The result keeps input order.
		insertOrder := make([]*model.Reservation, len(holds))
		copy(insertOrder, holds)
		sort.Slice(insertOrder, func(i, j int) bool {
			return insertOrder[i].SeatID < insertOrder[j].SeatID
		})

		if err := m.ledger.CreateHolds(txCtx, insertOrder); err != nil {
			if errors.Is(err, repository.ErrDuplicateHold) {
				// Lost the insert race: a competing transaction committed a
				// live row between our check and our insert.
				conflicts := make([]SeatConflict, 0, len(unique))
				for _, id := range unique {
					conflicts = append(conflicts, SeatConflict{ID: id, Reason: ReasonReserved})
				}
				return &SeatUnavailableError{Seats: conflicts}
			}
			return err
		}

		result.Seats = orderedSeats
		result.TotalPriceCents = total
		result.ExpiresAt = expiresAt
		result.Reservations = make([]model.Reservation, 0, len(holds))
		for _, h := range holds {
			result.Reservations = append(result.Reservations, *h)
			created = append(created, h.SeatID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(swept) > 0 {
		m.publish(broadcast.Event{EventID: eventID, Type: broadcast.TypeReleased, SeatIDs: swept})
	}
	m.publish(broadcast.Event{EventID: eventID, Type: broadcast.TypeReserved, SeatIDs: created})
	return &result, nil
}

// ConfirmHold finalises the live holds on the given seats into
// permanent reservations tied to a completed registration.  Expiry is
// cleared so confirmed seats never lapse.  When any target seat no
// longer carries a live RESERVED or LOCKED row the whole confirmation
// fails with ErrHoldExpiredOrMissing and nothing is changed.
func (m *Manager) ConfirmHold(ctx context.Context, eventID uint64, seatIDs []uint64, registrationID, paymentStatus string) error {
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return ErrEmptySeatSet
	}
	if paymentStatus == "" {
		paymentStatus = model.PaymentCompleted
	}

	now := m.clock.Now()
	err := m.ledger.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := m.ledger.ExpireStale(txCtx, eventID, now); err != nil {
			return err
		}
		confirmed, err := m.ledger.ConfirmBySeats(txCtx, eventID, unique, registrationID, paymentStatus, now)
		if err != nil {
			return err
		}
		if len(confirmed) != len(unique) {
			return ErrHoldExpiredOrMissing
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.publish(broadcast.Event{EventID: eventID, Type: broadcast.TypeConfirmed, SeatIDs: unique})
	return nil
}

// ReleaseHold cancels the live holds on the given seats and returns the
// seat IDs that were actually released.  A non-empty holderKey limits
// the release to holds owned by that holder; administrative callers
// pass an empty key to release unconditionally.  Releasing seats with
// no live hold is a no-op, so the operation is idempotent.
func (m *Manager) ReleaseHold(ctx context.Context, eventID uint64, seatIDs []uint64, holderKey string) ([]uint64, error) {
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return nil, ErrEmptySeatSet
	}

	var released []uint64
	err := m.ledger.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		released, err = m.ledger.CancelBySeats(txCtx, eventID, unique, holderKey)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(released) > 0 {
		m.publish(broadcast.Event{EventID: eventID, Type: broadcast.TypeReleased, SeatIDs: released})
	}
	return released, nil
}

// SweepExpired marks the event's lapsed holds as EXPIRED and broadcasts
// the freed seats.  RequestHold and ConfirmHold already sweep inside
// their own transactions; this entry point serves the availability read
// path and the optional background sweeper.
func (m *Manager) SweepExpired(ctx context.Context, eventID uint64) ([]uint64, error) {
	now := m.clock.Now()
	var swept []uint64
	err := m.ledger.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		swept, err = m.ledger.ExpireStale(txCtx, eventID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(swept) > 0 {
		m.publish(broadcast.Event{EventID: eventID, Type: broadcast.TypeReleased, SeatIDs: swept})
	}
	return swept, nil
}

// Now exposes the manager's clock for callers that need a consistent
// notion of "live" (e.g. the availability overlay).
func (m *Manager) Now() time.Time { return m.clock.Now() }

// publish delivers a broadcast event, shielding the caller from any
// subscriber misbehaviour.  Broadcast delivery is advisory only and
// must never fail a committed reservation operation.
func (m *Manager) publish(ev broadcast.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("broadcast publish panicked: %v", r)
		}
	}()
	m.publisher.Publish(ev)
}

// dedupe drops zero and repeated seat IDs while preserving order.
func dedupe(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
