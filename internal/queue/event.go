// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer that move them.
package queue

// TicketPurchasedEvent is published after a purchase commits. It carries
// enough information for downstream consumers to log or notify without
// querying the primary database.
type TicketPurchasedEvent struct {
	EventID       string `json:"event_id"`
	TicketID      uint64 `json:"ticket_id"`
	UserID        uint64 `json:"user_id"`
	TripID        uint64 `json:"trip_id"`
	FirmID        uint64 `json:"firm_id"`
	FromCity      string `json:"from_city"`
	ToCity        string `json:"to_city"`
	DepartDate    string `json:"depart_date"`
	DepartTime    string `json:"depart_time"`
	SeatNumber    uint32 `json:"seat_number"`
	PaidCents     int64  `json:"paid_cents"`
	DiscountCents int64  `json:"discount_cents"`
	CouponCode    string `json:"coupon_code,omitempty"`
	PurchasedAt   string `json:"purchased_at"`
}

// TicketCancelledEvent is published after a cancellation commits.
type TicketCancelledEvent struct {
	EventID       string `json:"event_id"`
	TicketID      uint64 `json:"ticket_id"`
	UserID        uint64 `json:"user_id"`
	TripID        uint64 `json:"trip_id"`
	RefundedCents int64  `json:"refunded_cents"`
	CancelledAt   string `json:"cancelled_at"`
}
