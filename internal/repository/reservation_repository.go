package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/evencore/seat-reservation/internal/model"
)

// ReservationRepo provides data access to the seat_reservations ledger.
// Rows move through the hold state machine but are never deleted; the
// terminal statuses preserve an audit trail of every hold attempt.
//
// The one-live-reservation-per-seat invariant is enforced by the
// database: seat_reservations carries a generated `live` column that is
// 1 for RESERVED/LOCKED/CONFIRMED rows and NULL otherwise, with a
// unique index over (event_id, seat_id, live).  Two transactions that
// both pass the availability check can therefore never both insert; the
// loser receives ErrDuplicateHold.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// WithTx runs fn inside a transaction on this repository's database.
// It satisfies the reservation manager's Ledger contract.
func (r *ReservationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.db, fn)
}

const reservationColumns = `id, event_id, seat_id, user_id, holder_key, status,
                            expires_at, price_paid_cents, payment_status,
                            registration_id, tenant_id, created_at, updated_at`

func scanReservation(scan func(...interface{}) error) (model.Reservation, error) {
	var (
		res     model.Reservation
		userID  sql.NullInt64
		expires sql.NullTime
		regID   sql.NullString
	)
	err := scan(&res.ID, &res.EventID, &res.SeatID, &userID, &res.HolderKey,
		&res.Status, &expires, &res.PricePaidCents, &res.PaymentStatus,
		&regID, &res.TenantID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return res, err
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		res.UserID = &uid
	}
	if expires.Valid {
		t := expires.Time.UTC()
		res.ExpiresAt = &t
	}
	if regID.Valid {
		rid := regID.String
		res.RegistrationID = &rid
	}
	return res, nil
}

// ExpireStale marks every RESERVED or LOCKED row of the event whose
// expiry has passed as EXPIRED and returns the seat IDs that were
// freed.  This is the lazy expiry sweep: the reservation manager runs
// it at the top of every hold attempt, inside the same transaction as
// the availability check, so stale holds are never counted as live.
func (r *ReservationRepo) ExpireStale(ctx context.Context, eventID uint64, now time.Time) ([]uint64, error) {
	q := conn(ctx, r.db)
	rows, err := q.QueryContext(ctx,
		`SELECT seat_id FROM seat_reservations
         WHERE event_id = ? AND status IN (?, ?) AND expires_at <= ?`,
		eventID, model.StatusReserved, model.StatusLocked, now.UTC())
	if err != nil {
		return nil, err
	}
	var seatIDs []uint64
	for rows.Next() {
		var sid uint64
		if scanErr := rows.Scan(&sid); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		seatIDs = append(seatIDs, sid)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(seatIDs) == 0 {
		return []uint64{}, nil
	}
	_, err = q.ExecContext(ctx,
		`UPDATE seat_reservations SET status = ?, updated_at = UTC_TIMESTAMP()
         WHERE event_id = ? AND status IN (?, ?) AND expires_at <= ?`,
		model.StatusExpired, eventID, model.StatusReserved, model.StatusLocked, now.UTC())
	if err != nil {
		return nil, err
	}
	return seatIDs, nil
}

// LiveBySeats returns the live reservations covering any of the given
// seats.  Inside a transaction the rows are locked with FOR UPDATE so a
// concurrent confirm or release on the same seats serializes behind the
// caller.
func (r *ReservationRepo) LiveBySeats(ctx context.Context, eventID uint64, seatIDs []uint64, now time.Time) ([]model.Reservation, error) {
	if len(seatIDs) == 0 {
		return []model.Reservation{}, nil
	}
	query := `SELECT ` + reservationColumns + ` FROM seat_reservations
              WHERE event_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)
                AND status IN (?, ?, ?)
                AND (expires_at IS NULL OR expires_at > ?)`
	if txFromContext(ctx) != nil {
		query += ` FOR UPDATE`
	}
	args := append([]interface{}{eventID}, uint64Args(seatIDs)...)
	args = append(args, model.StatusReserved, model.StatusLocked, model.StatusConfirmed, now.UTC())
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var live []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		live = append(live, res)
	}
	return live, rows.Err()
}

// LiveByEvent returns every live reservation of the event keyed by seat
// ID.  Used to overlay reservation state onto the seat-map listing.
func (r *ReservationRepo) LiveByEvent(ctx context.Context, eventID uint64, now time.Time) (map[uint64]model.Reservation, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM seat_reservations
         WHERE event_id = ? AND status IN (?, ?, ?)
           AND (expires_at IS NULL OR expires_at > ?)`,
		eventID, model.StatusReserved, model.StatusLocked, model.StatusConfirmed, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	live := make(map[uint64]model.Reservation)
	for rows.Next() {
		res, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		live[res.SeatID] = res
	}
	return live, rows.Err()
}

// CreateHolds inserts one ledger row per seat and populates the
// generated IDs.  It must run inside the same transaction as the
// availability check.  A unique index violation means another caller
// inserted a live row for one of the seats since the check; the whole
// batch fails with ErrDuplicateHold so no partial hold survives.
func (r *ReservationRepo) CreateHolds(ctx context.Context, holds []*model.Reservation) error {
	q := conn(ctx, r.db)
	const ins = `INSERT INTO seat_reservations
                 (event_id, seat_id, user_id, holder_key, status, expires_at,
                  price_paid_cents, payment_status, tenant_id)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, h := range holds {
		var userID interface{}
		if h.UserID != nil {
			userID = *h.UserID
		}
		var expires interface{}
		if h.ExpiresAt != nil {
			expires = h.ExpiresAt.UTC()
		}
		result, err := q.ExecContext(ctx, ins,
			h.EventID, h.SeatID, userID, h.HolderKey, h.Status, expires,
			h.PricePaidCents, h.PaymentStatus, h.TenantID)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateHold
			}
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		h.ID = uint64(id)
	}
	return nil
}

// ConfirmBySeats finalises the live held rows for the given seats:
// status CONFIRMED, expiry cleared, registration and payment outcome
// attached.  It returns the seat IDs actually confirmed; the manager
// treats a shortfall as a hold that expired or was released underneath
// the caller.
func (r *ReservationRepo) ConfirmBySeats(ctx context.Context, eventID uint64, seatIDs []uint64, registrationID, paymentStatus string, now time.Time) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return []uint64{}, nil
	}
	q := conn(ctx, r.db)
	marks := placeholders(len(seatIDs))
	selQ := `SELECT seat_id FROM seat_reservations
             WHERE event_id = ? AND seat_id IN (` + marks + `)
               AND status IN (?, ?) AND expires_at > ?`
	if txFromContext(ctx) != nil {
		selQ += ` FOR UPDATE`
	}
	args := append([]interface{}{eventID}, uint64Args(seatIDs)...)
	args = append(args, model.StatusReserved, model.StatusLocked, now.UTC())
	rows, err := q.QueryContext(ctx, selQ, args...)
	if err != nil {
		return nil, err
	}
	var confirmable []uint64
	for rows.Next() {
		var sid uint64
		if scanErr := rows.Scan(&sid); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		confirmable = append(confirmable, sid)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(confirmable) == 0 {
		return []uint64{}, nil
	}
	updQ := `UPDATE seat_reservations
             SET status = ?, expires_at = NULL, registration_id = ?,
                 payment_status = ?, updated_at = UTC_TIMESTAMP()
             WHERE event_id = ? AND seat_id IN (` + placeholders(len(confirmable)) + `)
               AND status IN (?, ?) AND expires_at > ?`
	updArgs := []interface{}{model.StatusConfirmed, registrationID, paymentStatus, eventID}
	updArgs = append(updArgs, uint64Args(confirmable)...)
	updArgs = append(updArgs, model.StatusReserved, model.StatusLocked, now.UTC())
	if _, err := q.ExecContext(ctx, updQ, updArgs...); err != nil {
		return nil, err
	}
	return confirmable, nil
}

// CancelBySeats releases the live held (not yet confirmed) rows for the
// given seats and returns the seat IDs that were actually released.
// When holderKey is non-empty only rows owned by that holder are
// touched, which is how anonymous buyers are prevented from releasing
// each other's holds.  Cancelling seats with no live hold is a no-op.
func (r *ReservationRepo) CancelBySeats(ctx context.Context, eventID uint64, seatIDs []uint64, holderKey string) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return []uint64{}, nil
	}
	q := conn(ctx, r.db)
	marks := placeholders(len(seatIDs))
	selQ := `SELECT seat_id FROM seat_reservations
             WHERE event_id = ? AND seat_id IN (` + marks + `)
               AND status IN (?, ?)`
	args := append([]interface{}{eventID}, uint64Args(seatIDs)...)
	args = append(args, model.StatusReserved, model.StatusLocked)
	if holderKey != "" {
		selQ += ` AND holder_key = ?`
		args = append(args, holderKey)
	}
	if txFromContext(ctx) != nil {
		selQ += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, selQ, args...)
	if err != nil {
		return nil, err
	}
	var released []uint64
	for rows.Next() {
		var sid uint64
		if scanErr := rows.Scan(&sid); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		released = append(released, sid)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(released) == 0 {
		return []uint64{}, nil
	}
	updQ := `UPDATE seat_reservations SET status = ?, updated_at = UTC_TIMESTAMP()
             WHERE event_id = ? AND seat_id IN (` + placeholders(len(released)) + `)
               AND status IN (?, ?)`
	updArgs := []interface{}{model.StatusCancelled, eventID}
	updArgs = append(updArgs, uint64Args(released)...)
	updArgs = append(updArgs, model.StatusReserved, model.StatusLocked)
	if holderKey != "" {
		updQ += ` AND holder_key = ?`
		updArgs = append(updArgs, holderKey)
	}
	if _, err := q.ExecContext(ctx, updQ, updArgs...); err != nil {
		return nil, err
	}
	return released, nil
}

// EventIDsWithHolds returns the distinct event IDs that currently have
// RESERVED or LOCKED rows.  The background sweeper uses it to bound its
// scan to events that can actually expire something.
func (r *ReservationRepo) EventIDsWithHolds(ctx context.Context) ([]uint64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT DISTINCT event_id FROM seat_reservations WHERE status IN (?, ?)`,
		model.StatusReserved, model.StatusLocked)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByEvent returns the full reservation history of an event, newest
// first.  Intended for audit and admin views; live and terminal rows
// are both included.
func (r *ReservationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Reservation, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM seat_reservations
         WHERE event_id = ? ORDER BY created_at DESC, id DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
