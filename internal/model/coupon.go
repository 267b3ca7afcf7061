package model

import "time"

// Coupon mirrors the `coupons` table. Codes are stored upper-case and
// matched case-insensitively. A nil FirmID marks a global coupon usable on
// any firm's trips. UsageLimit is the number of redemptions remaining and
// UsedCount the number consumed; their sum stays constant for the life of
// the coupon, and UsageLimit only ever decreases by one per successful
// redemption, never below zero.
//
// Fields:
//  ID              – primary key identifier.
//  Code            – unique upper-case code.
//  DiscountPercent – discount in (0, 100].
//  UsageLimit      – redemptions remaining.
//  UsedCount       – redemptions consumed.
//  ExpiryDate      – last day the coupon is valid (inclusive, business TZ).
//  FirmID          – owning firm, nil for global coupons.
//  CreatedAt       – creation timestamp.
type Coupon struct {
	ID              uint64    // coupons.id
	Code            string    // coupons.code
	DiscountPercent float64   // coupons.discount_percent
	UsageLimit      int32     // coupons.usage_limit
	UsedCount       int32     // coupons.used_count
	ExpiryDate      string    // coupons.expiry_date (YYYY-MM-DD)
	FirmID          *uint64   // coupons.firm_id (nullable)
	CreatedAt       time.Time // coupons.created_at
}
