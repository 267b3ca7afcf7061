package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otorez/bus-reservation/internal/config"
	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/queue"
	"github.com/otorez/bus-reservation/internal/repository"
	"github.com/otorez/bus-reservation/internal/service"
)

// The handler tests run a real BookingService over in-memory fakes, so
// they cover both the HTTP translation and the service wiring.

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type stubTrips struct{ trip model.Trip }

func (s stubTrips) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Trip, error) {
	if id != s.trip.ID {
		return model.Trip{}, repository.ErrNotFound
	}
	return s.trip, nil
}

type stubTickets struct {
	taken     bool
	createErr error
}

func (s *stubTickets) SeatTakenTx(ctx context.Context, tx *sql.Tx, tripID uint64, seatNumber uint32) (bool, error) {
	return s.taken, nil
}
func (s *stubTickets) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	if s.createErr != nil {
		return s.createErr
	}
	t.ID = 42
	t.Status = model.TicketActive
	return nil
}
func (s *stubTickets) CancelTx(ctx context.Context, tx *sql.Tx, ticketID uint64) error { return nil }
func (s *stubTickets) GetByID(ctx context.Context, id uint64) (model.Ticket, error) {
	return model.Ticket{ID: id, Status: model.TicketActive}, nil
}
func (s *stubTickets) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Ticket, error) {
	return model.Ticket{}, repository.ErrNotFound
}

type stubCredits struct{ debitErr error }

func (s stubCredits) DebitTx(ctx context.Context, tx *sql.Tx, userID uint64, amountCents int64) error {
	return s.debitErr
}
func (s stubCredits) CreditTx(ctx context.Context, tx *sql.Tx, userID uint64, amountCents int64) error {
	return nil
}

type stubRedeemer struct{ err error }

func (s stubRedeemer) RedeemTx(ctx context.Context, tx *sql.Tx, code string, tripFirmID uint64) (model.Coupon, error) {
	if s.err != nil {
		return model.Coupon{}, s.err
	}
	return model.Coupon{ID: 7, Code: code, DiscountPercent: 10}, nil
}

type nopPublisher struct{}

func (nopPublisher) TicketPurchased(ctx context.Context, ev queue.TicketPurchasedEvent) {}
func (nopPublisher) TicketCancelled(ctx context.Context, ev queue.TicketCancelledEvent) {}

func newPurchaseHandler(t *testing.T, tickets *stubTickets, credits stubCredits, redeemer stubRedeemer) *TicketHandler {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	trip := model.Trip{ID: 3, FirmID: 11, PriceCents: 25000, Seats: 44,
		DepartDate: "2099-01-01", DepartTime: "12:00", BusLayout: model.Layout2Plus2}
	svc := service.NewBookingService(stubTxRunner{}, stubTrips{trip: trip}, tickets, credits,
		redeemer, nopPublisher{}, loc, config.RefundOriginalPrice)
	return NewTicketHandler(svc, repository.NewTicketRepo(nil))
}

func doPurchase(t *testing.T, h *TicketHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/tickets", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(5))
	require.NoError(t, h.Purchase(c))
	return rec
}

func TestPurchaseEndpointSuccess(t *testing.T) {
	h := newPurchaseHandler(t, &stubTickets{}, stubCredits{}, stubRedeemer{})

	rec := doPurchase(t, h, `{"trip_id":3,"seat_number":12,"coupon_code":"SUMMER10"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ticket_id":42`)
	assert.Contains(t, rec.Body.String(), `"paid":"225.00"`)
	assert.Contains(t, rec.Body.String(), `"discount":"25.00"`)
}

func TestPurchaseEndpointSeatTaken(t *testing.T) {
	h := newPurchaseHandler(t, &stubTickets{taken: true}, stubCredits{}, stubRedeemer{})

	rec := doPurchase(t, h, `{"trip_id":3,"seat_number":12}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPurchaseEndpointInsufficientCredit(t *testing.T) {
	h := newPurchaseHandler(t, &stubTickets{}, stubCredits{debitErr: repository.ErrInsufficientCredit}, stubRedeemer{})

	rec := doPurchase(t, h, `{"trip_id":3,"seat_number":12}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestPurchaseEndpointCouponRejected(t *testing.T) {
	h := newPurchaseHandler(t, &stubTickets{}, stubCredits{}, stubRedeemer{err: repository.ErrCouponExpired})

	rec := doPurchase(t, h, `{"trip_id":3,"seat_number":12,"coupon_code":"OLD"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestPurchaseEndpointInvalidSeat(t *testing.T) {
	h := newPurchaseHandler(t, &stubTickets{}, stubCredits{}, stubRedeemer{})

	rec := doPurchase(t, h, `{"trip_id":3,"seat_number":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchaseEndpointUnknownTrip(t *testing.T) {
	h := newPurchaseHandler(t, &stubTickets{}, stubCredits{}, stubRedeemer{})

	rec := doPurchase(t, h, `{"trip_id":999,"seat_number":12}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
