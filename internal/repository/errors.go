// Package repository defines error values shared across the data access
// layer. These sentinels let the reservation manager and the handlers
// distinguish failure scenarios without inspecting driver errors. For
// example, ErrDuplicateHold marks the loser of two racing hold inserts
// for the same seat, which the manager reports as a seat conflict
// rather than a storage failure.
package repository

import "errors"

// ErrDuplicateHold is returned when inserting a hold violates the
// one-live-reservation-per-seat unique index. It means another caller
// won the race for the seat between this transaction's availability
// check and its insert.
var ErrDuplicateHold = errors.New("duplicate live hold")

// ErrSeatNotFound is returned when a referenced seat does not exist
// for the given event. Handlers should translate this into an HTTP
// 404 or report the seat as unavailable, depending on the operation.
var ErrSeatNotFound = errors.New("seat not found")
