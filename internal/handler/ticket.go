package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/money"
	"github.com/otorez/bus-reservation/internal/repository"
	"github.com/otorez/bus-reservation/internal/service"
)

// TicketHandler exposes the purchase and cancellation flows plus the
// caller's ticket history. All business rules live in BookingService;
// this layer only parses requests and translates errors.
type TicketHandler struct {
	Booking *service.BookingService
	Tickets *repository.TicketRepo
}

func NewTicketHandler(booking *service.BookingService, tickets *repository.TicketRepo) *TicketHandler {
	return &TicketHandler{Booking: booking, Tickets: tickets}
}

type purchaseReq struct {
	TripID     uint64 `json:"trip_id"`
	SeatNumber uint32 `json:"seat_number"`
	CouponCode string `json:"coupon_code"`
}

type purchaseResp struct {
	TicketID      uint64  `json:"ticket_id"`
	Paid          string  `json:"paid"`
	PaidCents     int64   `json:"paid_cents"`
	Discount      string  `json:"discount"`
	DiscountCents int64   `json:"discount_cents"`
	CouponID      *uint64 `json:"coupon_id,omitempty"`
}

// Purchase buys one seat for the authenticated customer.
func (h *TicketHandler) Purchase(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TripID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Booking.Purchase(ctx, uid, req.TripID, req.SeatNumber, req.CouponCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, purchaseResp{
		TicketID:      res.TicketID,
		Paid:          money.Format(res.PaidCents),
		PaidCents:     res.PaidCents,
		Discount:      money.Format(res.DiscountCents),
		DiscountCents: res.DiscountCents,
		CouponID:      res.CouponID,
	})
}

type cancelResp struct {
	Refunded      string `json:"refunded"`
	RefundedCents int64  `json:"refunded_cents"`
}

// Cancel voids the caller's active ticket and reports the refund.
func (h *TicketHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	refunded, err := h.Booking.Cancel(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cancelResp{Refunded: money.Format(refunded), RefundedCents: refunded})
}

type ticketPart struct {
	ID         uint64  `json:"id"`
	TripID     uint64  `json:"trip_id"`
	SeatNumber uint32  `json:"seat_number"`
	Status     string  `json:"status"`
	Paid       string  `json:"paid"`
	PaidCents  int64   `json:"paid_cents"`
	CouponID   *uint64 `json:"coupon_id,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func ticketToPart(t model.Ticket) ticketPart {
	return ticketPart{
		ID:         t.ID,
		TripID:     t.TripID,
		SeatNumber: t.SeatNumber,
		Status:     string(t.Status),
		Paid:       money.Format(t.PaidCents),
		PaidCents:  t.PaidCents,
		CouponID:   t.CouponID,
		CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListMine returns the caller's tickets, newest first.
func (h *TicketHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tickets, err := h.Tickets.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]ticketPart, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, ticketToPart(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": out})
}

// Get returns one ticket. Customers only see their own tickets.
func (h *TicketHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if t.UserID != uid {
		return respondError(c, repository.ErrForbidden)
	}
	return c.JSON(http.StatusOK, ticketToPart(t))
}
