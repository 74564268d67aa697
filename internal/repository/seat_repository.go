package repository

import (
	"context"
	"database/sql"

	"github.com/evencore/seat-reservation/internal/model"
)

// SeatRepo provides data access to the seat_inventory table.  The
// reservation core only reads from it; writes come from the floor-plan
// administration endpoints.  All timestamps are stored in UTC.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *SeatRepo) DB() *sql.DB { return r.db }

const seatColumns = `id, event_id, section, row_number, seat_number, seat_type,
                     base_price_cents, x_coordinate, y_coordinate, is_available,
                     created_at, updated_at`

func scanSeat(scan func(...interface{}) error) (model.Seat, error) {
	var s model.Seat
	err := scan(&s.ID, &s.EventID, &s.Section, &s.RowNumber, &s.SeatNumber,
		&s.SeatType, &s.BasePriceCents, &s.XCoordinate, &s.YCoordinate,
		&s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// GetByEventAndIDs loads the requested seats scoped to one event.  The
// result may contain fewer seats than requested; callers compare against
// the input set to detect unknown IDs.  When the context carries a
// transaction the rows are read within it, which is how the reservation
// manager pins seat prices during a hold.
func (r *SeatRepo) GetByEventAndIDs(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return []model.Seat{}, nil
	}
	query := `SELECT ` + seatColumns + ` FROM seat_inventory
              WHERE event_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]interface{}{eventID}, uint64Args(seatIDs)...)
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows.Scan)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// ListByEvent returns every seat of an event ordered by section, row and
// seat number, optionally filtered by section and seat type.  Used by
// the availability endpoint; the live-reservation overlay is joined in
// by the caller via ReservationRepo.LiveByEvent.
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID uint64, section, seatType string) ([]model.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seat_inventory WHERE event_id = ?`
	args := []interface{}{eventID}
	if section != "" {
		query += ` AND section = ?`
		args = append(args, section)
	}
	if seatType != "" {
		query += ` AND seat_type = ?`
		args = append(args, seatType)
	}
	query += ` ORDER BY section, row_number, seat_number`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows.Scan)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// CreateBulk inserts multiple seats in one statement.  It is used by the
// floor-plan generation endpoint.  Timestamps default in the database
// and the ID fields of the passed values are not populated.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seat_inventory
              (event_id, section, row_number, seat_number, seat_type,
               base_price_cents, x_coordinate, y_coordinate, is_available) VALUES `
	args := make([]interface{}, 0, len(seats)*9)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, s.EventID, s.Section, s.RowNumber, s.SeatNumber,
			s.SeatType, s.BasePriceCents, s.XCoordinate, s.YCoordinate, s.IsAvailable)
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}

// SetAvailability flips the hard-availability flag of one seat.  It
// returns ErrSeatNotFound when the seat does not exist for the event.
func (r *SeatRepo) SetAvailability(ctx context.Context, eventID, seatID uint64, available bool) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE seat_inventory SET is_available = ?, updated_at = UTC_TIMESTAMP()
         WHERE event_id = ? AND id = ?`,
		available, eventID, seatID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSeatNotFound
	}
	return nil
}
