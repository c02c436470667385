package model

import "time"

// Reservation records a booked itinerary. Rows are append-only: a
// reservation is created unpaid and flips to paid exactly once when the
// owner settles it. Flight2ID is nil for direct itineraries.
//
// Fields:
//  RID       – monotonically assigned reservation id.
//  Username  – owner (lowercase).
//  Paid      – payment flag, false until the balance debit commits.
//  Flight1ID – first (or only) leg.
//  Flight2ID – second leg, nil when direct.
//  CreatedAt – creation timestamp.
type Reservation struct {
	RID       int64     // reservations.rid
	Username  string    // reservations.username
	Paid      bool      // reservations.paid
	Flight1ID int64     // reservations.flight1_id
	Flight2ID *int64    // reservations.flight2_id (nullable)
	CreatedAt time.Time // reservations.created_at
}

// ReservationDetail is a reservation joined with the full flight rows for
// display. Returned by the list endpoint ordered by ascending RID.
type ReservationDetail struct {
	RID     int64   `json:"rid"`
	Paid    bool    `json:"paid"`
	Flight1 Flight  `json:"flight1"`
	Flight2 *Flight `json:"flight2,omitempty"`
}
