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

// CouponHandler serves the read-only coupon preview used by checkout
// screens. Actual redemption only ever happens inside a purchase.
type CouponHandler struct {
	Coupons *service.CouponService
	Trips   *repository.TripRepo
}

func NewCouponHandler(coupons *service.CouponService, trips *repository.TripRepo) *CouponHandler {
	return &CouponHandler{Coupons: coupons, Trips: trips}
}

type couponPreviewReq struct {
	Code   string `json:"code"`
	FirmID uint64 `json:"firm_id"`
	TripID uint64 `json:"trip_id"`
}

type couponPreviewResp struct {
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
	Discount        string  `json:"discount,omitempty"`
	DiscountCents   *int64  `json:"discount_cents,omitempty"`
	Final           string  `json:"final,omitempty"`
	FinalCents      *int64  `json:"final_cents,omitempty"`
}

// Preview validates a coupon without consuming a use. Clients send either
// a firm_id for a plain validity check, or a trip_id to also get the
// discounted price quoted against that trip.
func (h *CouponHandler) Preview(c echo.Context) error {
	var req couponPreviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Code == "" || (req.FirmID == 0 && req.TripID == 0) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and firm_id or trip_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp := couponPreviewResp{}
	firmID := req.FirmID
	if req.TripID != 0 {
		trip, err := h.Trips.GetByID(ctx, req.TripID)
		if err != nil {
			return respondError(c, err)
		}
		firmID = trip.FirmID

		coupon, err := h.Coupons.Preview(ctx, req.Code, firmID)
		if err != nil {
			return respondError(c, err)
		}
		discount := money.Discount(trip.PriceCents, coupon.DiscountPercent)
		final := trip.PriceCents - discount
		if final < 0 {
			final = 0
		}
		resp = couponPreviewResp{
			Code:            coupon.Code,
			DiscountPercent: coupon.DiscountPercent,
			Discount:        money.Format(discount),
			DiscountCents:   &discount,
			Final:           money.Format(final),
			FinalCents:      &final,
		}
		return c.JSON(http.StatusOK, resp)
	}

	coupon, err := h.Coupons.Preview(ctx, req.Code, firmID)
	if err != nil {
		return respondError(c, err)
	}
	resp.Code = coupon.Code
	resp.DiscountPercent = coupon.DiscountPercent
	return c.JSON(http.StatusOK, resp)
}

type couponPart struct {
	ID              uint64  `json:"id"`
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
	UsageLimit      int32   `json:"usage_limit"`
	UsedCount       int32   `json:"used_count"`
	ExpiryDate      string  `json:"expiry_date"`
	FirmID          *uint64 `json:"firm_id,omitempty"`
}

func couponToPart(c model.Coupon) couponPart {
	return couponPart{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		UsageLimit:      c.UsageLimit,
		UsedCount:       c.UsedCount,
		ExpiryDate:      c.ExpiryDate,
		FirmID:          c.FirmID,
	}
}
