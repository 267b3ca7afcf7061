//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otorez/bus-reservation/internal/config"
	"github.com/otorez/bus-reservation/internal/database"
	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/repository"
	"github.com/otorez/bus-reservation/internal/service"
)

// These tests need a real MySQL with schema.sql applied:
//
//	TEST_DB_USER=... TEST_DB_PASS=... TEST_DB_HOST=... TEST_DB_PORT=... TEST_DB_NAME=... \
//	  go test -tags integration ./internal/repository/
//
// They drive many purchases at the same seat / the same coupon from
// concurrent goroutines and assert the invariants the schema and the
// conditional writes are supposed to enforce.

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	user := os.Getenv("TEST_DB_USER")
	if user == "" {
		t.Skip("TEST_DB_USER not set, skipping integration tests")
	}
	db, err := database.Open(user, os.Getenv("TEST_DB_PASS"),
		os.Getenv("TEST_DB_HOST"), os.Getenv("TEST_DB_PORT"), os.Getenv("TEST_DB_NAME"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	db      *sql.DB
	booking *service.BookingService
	users   *repository.UserRepo
	tickets *repository.TicketRepo
	coupons *repository.CouponRepo
	firmID  uint64
	tripID  uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)

	users := repository.NewUserRepo(db)
	trips := repository.NewTripRepo(db)
	tickets := repository.NewTicketRepo(db)
	coupons := repository.NewCouponRepo(db)
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	couponSvc := service.NewCouponService(coupons, loc)
	booking := service.NewBookingService(database.NewTxRunner(db), trips, tickets, users,
		couponSvc, nil, loc, config.RefundOriginalPrice)

	ctx := context.Background()
	res, err := db.ExecContext(ctx, "INSERT INTO firms (name) VALUES (?)", "itest-"+uuid.NewString()[:8])
	require.NoError(t, err)
	rawFirmID, err := res.LastInsertId()
	require.NoError(t, err)
	firmID := uint64(rawFirmID)

	depart := time.Now().AddDate(0, 0, 7)
	trip := model.Trip{
		FirmID:     firmID,
		FromCity:   "Istanbul",
		ToCity:     "Ankara",
		DepartDate: depart.Format("2006-01-02"),
		DepartTime: "12:00",
		PriceCents: 25000,
		Seats:      44,
		BusLayout:  model.Layout2Plus2,
	}
	tripID, err := trips.Create(ctx, &trip)
	require.NoError(t, err)

	return &fixture{db: db, booking: booking, users: users, tickets: tickets,
		coupons: coupons, firmID: firmID, tripID: tripID}
}

func (f *fixture) newFundedUser(t *testing.T, creditCents int64) uint64 {
	t.Helper()
	ctx := context.Background()
	uid, err := f.users.Create(ctx, "itest-"+uuid.NewString()[:12], "password123", model.RoleCustomer, nil, 4)
	require.NoError(t, err)
	require.NoError(t, f.users.Credit(ctx, uid, creditCents))
	return uid
}

// Two-to-many buyers race for one seat: exactly one ticket may exist and
// exactly one balance may have moved.
func TestConcurrentSeatPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const buyers = 8
	userIDs := make([]uint64, buyers)
	for i := range userIDs {
		userIDs[i] = f.newFundedUser(t, 25000)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for _, uid := range userIDs {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := f.booking.Purchase(ctx, uid, f.tripID, 7, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				failures = append(failures, err)
			}
		}(uid)
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one buyer wins the seat")
	for _, err := range failures {
		assert.True(t, errors.Is(err, repository.ErrSeatTaken), "loser got %v", err)
	}

	var count int
	require.NoError(t, f.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets WHERE trip_id=? AND seat_number=? AND status='active'",
		f.tripID, 7).Scan(&count))
	assert.Equal(t, 1, count)

	// Every loser keeps a full balance; the winner paid once.
	var debited int
	for _, uid := range userIDs {
		u, err := f.users.GetByID(ctx, uid)
		require.NoError(t, err)
		switch u.CreditCents {
		case 25000:
		case 0:
			debited++
		default:
			t.Fatalf("user %d has unexpected balance %d", uid, u.CreditCents)
		}
	}
	assert.Equal(t, 1, debited)
}

// Many buyers race for a coupon with three remaining uses on distinct
// seats: exactly three purchases may carry the discount, and the coupon
// counters must add up.
func TestConcurrentCouponRedemption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := fmt.Sprintf("ITEST%s", uuid.NewString()[:8])
	_, err := f.coupons.Create(ctx, &model.Coupon{
		Code:            code,
		DiscountPercent: 10,
		UsageLimit:      3,
		ExpiryDate:      time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
	})
	require.NoError(t, err)

	const buyers = 10
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		discounted int
		exhausted  int
	)
	for i := 0; i < buyers; i++ {
		uid := f.newFundedUser(t, 25000)
		seat := uint32(i + 1)
		wg.Add(1)
		go func(uid uint64, seat uint32) {
			defer wg.Done()
			_, err := f.booking.Purchase(ctx, uid, f.tripID, seat, code)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				discounted++
			case errors.Is(err, repository.ErrCouponExhausted):
				exhausted++
			default:
				t.Errorf("unexpected purchase error: %v", err)
			}
		}(uid, seat)
	}
	wg.Wait()

	assert.Equal(t, 3, discounted, "coupon honored exactly usage_limit times")
	assert.Equal(t, buyers-3, exhausted)

	c, err := f.coupons.GetByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int32(0), c.UsageLimit)
	assert.Equal(t, int32(3), c.UsedCount)

	// A failed coupon never produced a full-price ticket.
	var tickets int
	require.NoError(t, f.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets WHERE trip_id=? AND status='active'", f.tripID).Scan(&tickets))
	assert.Equal(t, 3, tickets)
}

// A 100%-off coupon sells the seat without moving money. Against real
// MySQL this exercises the changed-rows semantics of UPDATE: a
// zero-amount conditional debit would match the row but change nothing,
// which must not read as an insufficient balance.
func TestHundredPercentCouponPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := fmt.Sprintf("FREE%s", uuid.NewString()[:8])
	_, err := f.coupons.Create(ctx, &model.Coupon{
		Code:            code,
		DiscountPercent: 100,
		UsageLimit:      1,
		ExpiryDate:      time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
	})
	require.NoError(t, err)

	uid := f.newFundedUser(t, 25000)
	res, err := f.booking.Purchase(ctx, uid, f.tripID, 3, code)
	require.NoError(t, err)
	assert.Zero(t, res.PaidCents)
	assert.Equal(t, int64(25000), res.DiscountCents)

	u, err := f.users.GetByID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), u.CreditCents, "balance untouched by a free seat")

	tk, err := f.tickets.GetByID(ctx, res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketActive, tk.Status)
	assert.Zero(t, tk.PaidCents)
}

// A cancelled seat becomes purchasable again: the generated active_seat
// column only guards active tickets.
func TestSeatReusableAfterCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.newFundedUser(t, 25000)
	res, err := f.booking.Purchase(ctx, first, f.tripID, 5, "")
	require.NoError(t, err)

	refund, err := f.booking.Cancel(ctx, first, res.TicketID)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), refund)

	second := f.newFundedUser(t, 25000)
	_, err = f.booking.Purchase(ctx, second, f.tripID, 5, "")
	assert.NoError(t, err)
}
