// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP statuses. Coupon failures carry their own reason each
// so a rejected purchase can tell the buyer exactly why.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrSeatTaken is returned when a seat already has an active ticket, either
// detected by the in-transaction availability check or by the unique key on
// (trip_id, active_seat) at insert time. Maps to HTTP 409.
var ErrSeatTaken = errors.New("seat already taken")

// ErrInsufficientCredit is returned when a conditional debit matches no row
// because the balance is below the amount. Maps to HTTP 402.
var ErrInsufficientCredit = errors.New("insufficient credit")

// Coupon redemption failures. Each one aborts the whole purchase; the
// reason is surfaced to the buyer verbatim.
var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponExpired   = errors.New("coupon expired")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	ErrCouponScope     = errors.New("coupon not valid for this firm")
)

// ErrTicketCancelled is returned when cancelling a ticket that is no longer
// active. Maps to HTTP 409.
var ErrTicketCancelled = errors.New("ticket already cancelled")

// ErrCancelWindow is returned when the trip departs in under one hour and
// the cancellation cutoff has passed.
var ErrCancelWindow = errors.New("cancellation window closed")

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// other than the active-seat key (usernames, firm names, coupon codes).
var ErrDuplicate = errors.New("duplicate entry")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a trip that still has
// active tickets. Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
