package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/otorez/bus-reservation/internal/config"
	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/money"
	"github.com/otorez/bus-reservation/internal/queue"
	"github.com/otorez/bus-reservation/internal/repository"
)

// maxSeatNumber bounds seat input before any trip lookup; no bus layout
// comes close to this.
const maxSeatNumber = 1000

// cancelCutoff is how long before departure a ticket stops being
// cancellable.
const cancelCutoff = time.Hour

// ErrInvalidSeat is returned for seat numbers outside 1..trip.seats. The
// coarse bound is checked before touching storage.
var ErrInvalidSeat = errors.New("invalid seat number")

// ErrPersistence signals that a committed ticket could not be read back.
// It indicates storage corruption or misconfiguration, not a user error:
// handlers log it and answer with a generic failure.
var ErrPersistence = errors.New("persistence failure")

// TxRunner runs a function inside a single database transaction. The
// concrete implementation is database.TxRunner; tests substitute a fake
// that passes a nil tx to mocked stores.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// TripStore is the slice of TripRepo the booking flows need.
type TripStore interface {
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Trip, error)
}

// TicketStore is the slice of TicketRepo the booking flows need.
type TicketStore interface {
	SeatTakenTx(ctx context.Context, tx *sql.Tx, tripID uint64, seatNumber uint32) (bool, error)
	CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error
	CancelTx(ctx context.Context, tx *sql.Tx, ticketID uint64) error
	GetByID(ctx context.Context, id uint64) (model.Ticket, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Ticket, error)
}

// CreditStore is the ledger slice of UserRepo: conditional debit,
// unconditional credit.
type CreditStore interface {
	DebitTx(ctx context.Context, tx *sql.Tx, userID uint64, amountCents int64) error
	CreditTx(ctx context.Context, tx *sql.Tx, userID uint64, amountCents int64) error
}

// Redeemer consumes one coupon use inside the purchase transaction.
type Redeemer interface {
	RedeemTx(ctx context.Context, tx *sql.Tx, code string, tripFirmID uint64) (model.Coupon, error)
}

// EventPublisher receives best-effort notifications after a flow commits.
// May be nil when no broker is configured.
type EventPublisher interface {
	TicketPurchased(ctx context.Context, ev queue.TicketPurchasedEvent)
	TicketCancelled(ctx context.Context, ev queue.TicketCancelledEvent)
}

// BookingService orchestrates seat purchase and cancellation. Every
// mutation runs inside one transaction: the seat check, the coupon
// decrement, the credit movement and the ticket write commit together or
// not at all, so no partial state is ever observable.
type BookingService struct {
	tx      TxRunner
	trips   TripStore
	tickets TicketStore
	credits CreditStore
	coupons Redeemer
	events  EventPublisher
	loc     *time.Location
	refund  config.RefundPolicy
	now     func() time.Time
}

// NewBookingService constructs a BookingService. events may be nil; the
// other dependencies must not be.
func NewBookingService(tx TxRunner, trips TripStore, tickets TicketStore, credits CreditStore, coupons Redeemer, events EventPublisher, loc *time.Location, refund config.RefundPolicy) *BookingService {
	if tx == nil || trips == nil || tickets == nil || credits == nil || coupons == nil || loc == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{
		tx:      tx,
		trips:   trips,
		tickets: tickets,
		credits: credits,
		coupons: coupons,
		events:  events,
		loc:     loc,
		refund:  refund,
		now:     time.Now,
	}
}

// PurchaseResult reports a committed purchase back to the handler.
type PurchaseResult struct {
	TicketID      uint64
	PaidCents     int64
	DiscountCents int64
	CouponID      *uint64
}

// Purchase sells one seat to userID. Step order matches the established
// business flow: availability first, then coupon, then payment, so a
// buyer who loses the seat race never burns a coupon use, and a coupon
// failure aborts the purchase rather than falling back to full price.
// There is deliberately no idempotency: a retried request after a
// committed purchase is correctly rejected as a seat conflict.
func (s *BookingService) Purchase(ctx context.Context, userID, tripID uint64, seatNumber uint32, couponCode string) (PurchaseResult, error) {
	if seatNumber < 1 || seatNumber > maxSeatNumber {
		return PurchaseResult{}, ErrInvalidSeat
	}

	var (
		ticket   model.Ticket
		trip     model.Trip
		discount int64
	)
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		trip, err = s.trips.GetByIDTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if seatNumber > trip.Seats {
			return ErrInvalidSeat
		}

		taken, err := s.tickets.SeatTakenTx(ctx, tx, tripID, seatNumber)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrSeatTaken
		}

		price := trip.PriceCents
		var couponID *uint64
		if couponCode != "" {
			coupon, err := s.coupons.RedeemTx(ctx, tx, couponCode, trip.FirmID)
			if err != nil {
				return err
			}
			discount = money.Discount(price, coupon.DiscountPercent)
			id := coupon.ID
			couponID = &id
		}
		final := price - discount
		if final < 0 {
			final = 0
		}

		// MySQL reports changed rows, not matched rows, so a zero-amount
		// debit would look like an insufficient balance. A fully discounted
		// seat moves no money; skip the statement like the zero-refund case
		// in Cancel.
		if final > 0 {
			if err := s.credits.DebitTx(ctx, tx, userID, final); err != nil {
				return err
			}
		}

		ticket = model.Ticket{
			UserID:     userID,
			TripID:     tripID,
			SeatNumber: seatNumber,
			PaidCents:  final,
			CouponID:   couponID,
		}
		return s.tickets.CreateTx(ctx, tx, &ticket)
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	// Durability sanity check: the row must be readable after commit. A
	// miss here is a storage-integrity problem, never a user error.
	if _, err := s.tickets.GetByID(ctx, ticket.ID); err != nil {
		log.Printf("booking: ticket %d missing after commit: %v", ticket.ID, err)
		return PurchaseResult{}, ErrPersistence
	}

	if s.events != nil {
		s.events.TicketPurchased(ctx, queue.TicketPurchasedEvent{
			TicketID:      ticket.ID,
			UserID:        userID,
			TripID:        tripID,
			FirmID:        trip.FirmID,
			FromCity:      trip.FromCity,
			ToCity:        trip.ToCity,
			DepartDate:    trip.DepartDate,
			DepartTime:    trip.DepartTime,
			SeatNumber:    seatNumber,
			PaidCents:     ticket.PaidCents,
			DiscountCents: discount,
			CouponCode:    couponCode,
			PurchasedAt:   s.now().UTC().Format(time.RFC3339),
		})
	}

	return PurchaseResult{
		TicketID:      ticket.ID,
		PaidCents:     ticket.PaidCents,
		DiscountCents: discount,
		CouponID:      ticket.CouponID,
	}, nil
}

// Cancel reverses a purchase: the status flip and the refund share one
// transaction. The caller must own the ticket, the ticket must still be
// active, and the trip must depart at least an hour from now in the
// business timezone. The refunded amount follows the configured policy:
// historically the listed trip price, optionally the amount actually paid.
func (s *BookingService) Cancel(ctx context.Context, userID, ticketID uint64) (int64, error) {
	var (
		refund int64
		ticket model.Ticket
	)
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		ticket, err = s.tickets.GetByIDTx(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if ticket.UserID != userID {
			return repository.ErrForbidden
		}
		if ticket.Status != model.TicketActive {
			return repository.ErrTicketCancelled
		}

		trip, err := s.trips.GetByIDTx(ctx, tx, ticket.TripID)
		if err != nil {
			return err
		}
		departure, err := trip.DepartureIn(s.loc)
		if err != nil {
			return err
		}
		if departure.Sub(s.now().In(s.loc)) < cancelCutoff {
			return repository.ErrCancelWindow
		}

		if err := s.tickets.CancelTx(ctx, tx, ticketID); err != nil {
			return err
		}

		switch s.refund {
		case config.RefundAmountPaid:
			refund = ticket.PaidCents
		default:
			refund = trip.PriceCents
		}
		if refund > 0 {
			return s.credits.CreditTx(ctx, tx, userID, refund)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.events != nil {
		s.events.TicketCancelled(ctx, queue.TicketCancelledEvent{
			TicketID:      ticketID,
			UserID:        userID,
			TripID:        ticket.TripID,
			RefundedCents: refund,
			CancelledAt:   s.now().UTC().Format(time.RFC3339),
		})
	}
	return refund, nil
}
