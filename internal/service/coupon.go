// Package service implements the transactional business flows: seat
// purchase, cancellation and coupon redemption. Handlers stay thin and
// translate the typed errors returned here into HTTP responses.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/repository"
)

// CouponStore is the slice of CouponRepo the coupon flows need.
type CouponStore interface {
	GetByCode(ctx context.Context, code string) (model.Coupon, error)
	GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.Coupon, error)
	ConsumeTx(ctx context.Context, tx *sql.Tx, couponID uint64) error
}

// CouponService validates and redeems coupons. All date comparisons use
// the business timezone: a coupon stays valid through the whole of its
// expiry date, wherever the server happens to run.
type CouponService struct {
	coupons CouponStore
	loc     *time.Location
	now     func() time.Time
}

// NewCouponService constructs a CouponService. loc is the business
// timezone used for expiry checks.
func NewCouponService(coupons CouponStore, loc *time.Location) *CouponService {
	if coupons == nil || loc == nil {
		panic("nil dependency passed to NewCouponService")
	}
	return &CouponService{coupons: coupons, loc: loc, now: time.Now}
}

// validate runs the non-mutating checks shared by redemption and preview:
// expiry, remaining uses and firm scope, in that order.
func (s *CouponService) validate(c model.Coupon, tripFirmID uint64) error {
	expiry, err := time.ParseInLocation("2006-01-02", c.ExpiryDate, s.loc)
	if err != nil {
		return repository.ErrCouponExpired
	}
	// The coupon is good until 23:59:59 on its expiry date; compare against
	// the start of today so a same-day expiry still passes.
	endOfExpiry := expiry.Add(24*time.Hour - time.Second)
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if today.After(endOfExpiry) {
		return repository.ErrCouponExpired
	}
	if c.UsageLimit <= 0 {
		return repository.ErrCouponExhausted
	}
	if c.FirmID != nil && *c.FirmID != tripFirmID {
		return repository.ErrCouponScope
	}
	return nil
}

// RedeemTx validates the coupon for a trip's firm and consumes one use,
// all within the caller's transaction. The consume is a conditional
// decrement: if a concurrent redemption took the last use between our read
// and the update, it affects zero rows and ErrCouponExhausted comes back
// even though the earlier limit check passed.
func (s *CouponService) RedeemTx(ctx context.Context, tx *sql.Tx, code string, tripFirmID uint64) (model.Coupon, error) {
	c, err := s.coupons.GetByCodeTx(ctx, tx, code)
	if err != nil {
		return model.Coupon{}, err
	}
	if err := s.validate(c, tripFirmID); err != nil {
		return model.Coupon{}, err
	}
	if err := s.coupons.ConsumeTx(ctx, tx, c.ID); err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}

// Preview runs the validity checks without consuming a use. It backs the
// read-only preview endpoint and must never mutate the coupon.
func (s *CouponService) Preview(ctx context.Context, code string, tripFirmID uint64) (model.Coupon, error) {
	c, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return model.Coupon{}, err
	}
	if err := s.validate(c, tripFirmID); err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}
