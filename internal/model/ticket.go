package model

import "time"

// Ticket statuses. An active ticket occupies its seat; a cancelled one
// frees it. The generated active_seat column plus the uniq_active_seat key
// guarantee at most one active ticket per (trip, seat).
const (
	TicketActive    = "active"
	TicketCancelled = "cancelled"
)

// Ticket mirrors the `tickets` table. PaidCents records what the buyer
// actually paid after any coupon discount so the refund policy can choose
// between the listed price and the paid amount.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – purchasing user.
//  TripID     – trip the seat belongs to.
//  SeatNumber – seat within 1..trip.seats.
//  Status     – active or cancelled.
//  PaidCents  – amount debited at purchase, in kurus.
//  CouponID   – coupon redeemed at purchase, if any.
//  CreatedAt  – purchase timestamp.
type Ticket struct {
	ID         uint64    // tickets.id
	UserID     uint64    // tickets.user_id
	TripID     uint64    // tickets.trip_id
	SeatNumber uint32    // tickets.seat_number
	Status     string    // tickets.status
	PaidCents  int64     // tickets.paid_cents
	CouponID   *uint64   // tickets.coupon_id (nullable)
	CreatedAt  time.Time // tickets.created_at
}
