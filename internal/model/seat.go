package model

import "time"

// Seat describes one physical seat in an event's floor plan.  Seats are
// created when the floor plan is generated and are uniquely identified
// within an event by section, row and seat number.  The base price is
// captured in cents; holds copy it at reservation time so later price
// edits never change what a buyer was quoted.
//
// Fields:
//  ID             – primary key identifier.
//  EventID        – event to which this seat belongs.
//  Section        – named section of the floor plan (e.g. "Orchestra").
//  RowNumber      – row label within the section.
//  SeatNumber     – number of the seat within the row.
//  SeatType       – tier of the seat (e.g. standard, premium, vip).
//  BasePriceCents – list price for the seat in cents.
//  XCoordinate / YCoordinate – render position on the seat map.
//  IsAvailable    – hard availability flag; false means the seat is
//                   physically unusable and can never be held.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Seat struct {
	ID             uint64    `json:"id"`
	EventID        uint64    `json:"eventId"`
	Section        string    `json:"section"`
	RowNumber      string    `json:"rowNumber"`
	SeatNumber     uint32    `json:"seatNumber"`
	SeatType       string    `json:"seatType"`
	BasePriceCents uint32    `json:"basePrice"`
	XCoordinate    float64   `json:"xCoordinate"`
	YCoordinate    float64   `json:"yCoordinate"`
	IsAvailable    bool      `json:"isAvailable"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}
