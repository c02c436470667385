// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationBookedEvent is published when a reservation commits. It
// carries enough detail for downstream consumers to log or notify
// without querying the primary database.
type ReservationBookedEvent struct {
	ReservationID int64  `json:"reservation_id"`
	Username      string `json:"username"`
	Flight1ID     int64  `json:"flight1_id"`
	Flight2ID     *int64 `json:"flight2_id,omitempty"`
	DayOfMonth    int    `json:"day_of_month"`
	TotalPrice    int64  `json:"total_price"`
	BookedAt      string `json:"booked_at"`
}

// PaymentCapturedEvent is published when an unpaid reservation is settled
// and the owner's balance debited.
type PaymentCapturedEvent struct {
	ReservationID int64  `json:"reservation_id"`
	Username      string `json:"username"`
	AmountPaid    int64  `json:"amount_paid"`
	NewBalance    int64  `json:"new_balance"`
	PaidAt        string `json:"paid_at"`
}
