package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/repository"
)

// mockCouponStore implements CouponStore with function fields so each
// test overrides only what it needs.
type mockCouponStore struct {
	getByCode   func(ctx context.Context, code string) (model.Coupon, error)
	getByCodeTx func(ctx context.Context, tx *sql.Tx, code string) (model.Coupon, error)
	consumeTx   func(ctx context.Context, tx *sql.Tx, couponID uint64) error
	consumed    int
}

func (m *mockCouponStore) GetByCode(ctx context.Context, code string) (model.Coupon, error) {
	return m.getByCode(ctx, code)
}
func (m *mockCouponStore) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.Coupon, error) {
	return m.getByCodeTx(ctx, tx, code)
}
func (m *mockCouponStore) ConsumeTx(ctx context.Context, tx *sql.Tx, couponID uint64) error {
	m.consumed++
	if m.consumeTx != nil {
		return m.consumeTx(ctx, tx, couponID)
	}
	return nil
}

func istanbul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	return loc
}

func newCouponService(t *testing.T, store *mockCouponStore, now time.Time) *CouponService {
	t.Helper()
	s := NewCouponService(store, istanbul(t))
	s.now = func() time.Time { return now }
	return s
}

func validCoupon() model.Coupon {
	return model.Coupon{
		ID:              7,
		Code:            "SUMMER10",
		DiscountPercent: 10,
		UsageLimit:      5,
		ExpiryDate:      "2026-09-15",
	}
}

func TestPreviewValidOnExpiryDay(t *testing.T) {
	loc := istanbul(t)
	store := &mockCouponStore{
		getByCode: func(ctx context.Context, code string) (model.Coupon, error) {
			return validCoupon(), nil
		},
	}
	// Late evening on the expiry date itself: still valid.
	now := time.Date(2026, 9, 15, 23, 30, 0, 0, loc)
	s := newCouponService(t, store, now)

	c, err := s.Preview(context.Background(), "SUMMER10", 3)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", c.Code)
	assert.Zero(t, store.consumed, "preview must not consume a use")
}

func TestPreviewExpiredDayAfter(t *testing.T) {
	loc := istanbul(t)
	store := &mockCouponStore{
		getByCode: func(ctx context.Context, code string) (model.Coupon, error) {
			return validCoupon(), nil
		},
	}
	now := time.Date(2026, 9, 16, 0, 1, 0, 0, loc)
	s := newCouponService(t, store, now)

	_, err := s.Preview(context.Background(), "SUMMER10", 3)
	assert.ErrorIs(t, err, repository.ErrCouponExpired)
}

func TestPreviewExhausted(t *testing.T) {
	loc := istanbul(t)
	store := &mockCouponStore{
		getByCode: func(ctx context.Context, code string) (model.Coupon, error) {
			c := validCoupon()
			c.UsageLimit = 0
			return c, nil
		},
	}
	s := newCouponService(t, store, time.Date(2026, 9, 1, 12, 0, 0, 0, loc))

	_, err := s.Preview(context.Background(), "SUMMER10", 3)
	assert.ErrorIs(t, err, repository.ErrCouponExhausted)
}

func TestPreviewFirmScope(t *testing.T) {
	loc := istanbul(t)
	otherFirm := uint64(99)
	store := &mockCouponStore{
		getByCode: func(ctx context.Context, code string) (model.Coupon, error) {
			c := validCoupon()
			c.FirmID = &otherFirm
			return c, nil
		},
	}
	s := newCouponService(t, store, time.Date(2026, 9, 1, 12, 0, 0, 0, loc))

	_, err := s.Preview(context.Background(), "SUMMER10", 3)
	assert.ErrorIs(t, err, repository.ErrCouponScope)
}

func TestPreviewGlobalCouponAnyFirm(t *testing.T) {
	loc := istanbul(t)
	store := &mockCouponStore{
		getByCode: func(ctx context.Context, code string) (model.Coupon, error) {
			return validCoupon(), nil // FirmID nil: platform-wide
		},
	}
	s := newCouponService(t, store, time.Date(2026, 9, 1, 12, 0, 0, 0, loc))

	_, err := s.Preview(context.Background(), "SUMMER10", 12345)
	assert.NoError(t, err)
}

func TestRedeemConsumesOneUse(t *testing.T) {
	loc := istanbul(t)
	store := &mockCouponStore{
		getByCodeTx: func(ctx context.Context, tx *sql.Tx, code string) (model.Coupon, error) {
			return validCoupon(), nil
		},
	}
	s := newCouponService(t, store, time.Date(2026, 9, 1, 12, 0, 0, 0, loc))

	c, err := s.RedeemTx(context.Background(), nil, "SUMMER10", 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), c.ID)
	assert.Equal(t, 1, store.consumed)
}

func TestRedeemRaceLosesLastUse(t *testing.T) {
	loc := istanbul(t)
	store := &mockCouponStore{
		getByCodeTx: func(ctx context.Context, tx *sql.Tx, code string) (model.Coupon, error) {
			c := validCoupon()
			c.UsageLimit = 1
			return c, nil
		},
		// The conditional decrement found usage_limit already at zero.
		consumeTx: func(ctx context.Context, tx *sql.Tx, couponID uint64) error {
			return repository.ErrCouponExhausted
		},
	}
	s := newCouponService(t, store, time.Date(2026, 9, 1, 12, 0, 0, 0, loc))

	_, err := s.RedeemTx(context.Background(), nil, "SUMMER10", 3)
	assert.ErrorIs(t, err, repository.ErrCouponExhausted)
}

func TestRedeemSkipsConsumeWhenInvalid(t *testing.T) {
	loc := istanbul(t)
	store := &mockCouponStore{
		getByCodeTx: func(ctx context.Context, tx *sql.Tx, code string) (model.Coupon, error) {
			c := validCoupon()
			c.ExpiryDate = "2020-01-01"
			return c, nil
		},
	}
	s := newCouponService(t, store, time.Date(2026, 9, 1, 12, 0, 0, 0, loc))

	_, err := s.RedeemTx(context.Background(), nil, "SUMMER10", 3)
	assert.ErrorIs(t, err, repository.ErrCouponExpired)
	assert.Zero(t, store.consumed)
}
