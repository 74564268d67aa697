package reservation

import (
	"errors"
	"fmt"
)

// ErrEmptySeatSet is returned when an operation is invoked without any
// seat IDs. Handlers translate it into an HTTP 400.
var ErrEmptySeatSet = errors.New("seat set is empty")

// ErrHoldExpiredOrMissing is returned by ConfirmHold when one or more
// of the target seats no longer carries a live hold, typically because
// the hold expired or was released while payment was in flight. The
// caller must restart the reservation flow. Handlers translate it into
// an HTTP 409.
var ErrHoldExpiredOrMissing = errors.New("hold expired or missing")

// Conflict reasons reported inside a SeatUnavailableError.
const (
	ReasonReserved    = "Reserved"
	ReasonNotFound    = "Not found"
	ReasonUnavailable = "Unavailable"
)

// SeatConflict names one seat that blocked a hold request and why.
type SeatConflict struct {
	ID     uint64 `json:"id"`
	Reason string `json:"reason"`
}

// SeatUnavailableError reports the seats that prevented a hold request
// from succeeding. No seats are held when it is returned; the request
// either reserves the whole set or nothing.
type SeatUnavailableError struct {
	Seats []SeatConflict
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("%d seat(s) unavailable", len(e.Seats))
}

// AsSeatUnavailable unwraps err into a SeatUnavailableError, if it is one.
func AsSeatUnavailable(err error) (*SeatUnavailableError, bool) {
	var se *SeatUnavailableError
	ok := errors.As(err, &se)
	return se, ok
}
