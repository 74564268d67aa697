// Package queue bridges seat state-change broadcasts onto the message
// broker so out-of-process consumers (seat-map pushers, audit loggers)
// can follow availability without polling the primary database.
package queue

// SeatStateEvent is published whenever seats are reserved, released or
// confirmed.  It mirrors the in-process broadcast payload plus a
// timestamp for downstream ordering hints; consumers must still treat
// the stream as advisory and re-fetch availability when in doubt.
type SeatStateEvent struct {
	EventID    uint64   `json:"event_id"`
	Type       string   `json:"type"`
	SeatIDs    []uint64 `json:"seat_ids"`
	OccurredAt string   `json:"occurred_at"`
}
