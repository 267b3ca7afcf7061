package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/otorez/bus-reservation/internal/model"
)

// CouponRepo provides coupon persistence. Redemption is a single
// conditional decrement whose affected-row count is the only proof of
// success; re-reading then writing would let two redemptions both pass the
// limit check and overspend the coupon.
type CouponRepo struct{ DB *sql.DB }

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{DB: db} }

const couponCols = "id, code, discount_percent, usage_limit, used_count, DATE_FORMAT(expiry_date,'%Y-%m-%d'), firm_id, created_at"

// NormalizeCode trims and upper-cases a coupon code for case-insensitive
// matching. Codes are stored upper-case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func scanCoupon(scan func(dest ...any) error) (model.Coupon, error) {
	var (
		c      model.Coupon
		firmID sql.NullInt64
	)
	err := scan(&c.ID, &c.Code, &c.DiscountPercent, &c.UsageLimit, &c.UsedCount, &c.ExpiryDate, &firmID, &c.CreatedAt)
	if err != nil {
		return model.Coupon{}, err
	}
	if firmID.Valid {
		id := uint64(firmID.Int64)
		c.FirmID = &id
	}
	return c, nil
}

// Create inserts a coupon and returns its ID. The code is normalized here.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO coupons (code, discount_percent, usage_limit, used_count, expiry_date, firm_id) VALUES (?,?,?,0,?,?)",
		NormalizeCode(c.Code), c.DiscountPercent, c.UsageLimit, c.ExpiryDate, c.FirmID)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByCode fetches a coupon by normalized code.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (model.Coupon, error) {
	c, err := scanCoupon(r.DB.QueryRowContext(ctx,
		"SELECT "+couponCols+" FROM coupons WHERE code=? LIMIT 1", NormalizeCode(code)).Scan)
	if err == sql.ErrNoRows {
		return model.Coupon{}, ErrCouponNotFound
	}
	return c, err
}

// GetByCodeTx is GetByCode inside an existing transaction, used by the
// purchase path so the coupon it validates is the one it decrements.
func (r *CouponRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.Coupon, error) {
	c, err := scanCoupon(tx.QueryRowContext(ctx,
		"SELECT "+couponCols+" FROM coupons WHERE code=? LIMIT 1", NormalizeCode(code)).Scan)
	if err == sql.ErrNoRows {
		return model.Coupon{}, ErrCouponNotFound
	}
	return c, err
}

// ConsumeTx atomically takes one use from the coupon within tx. The
// usage_limit > 0 condition re-checks the limit at execution time; zero
// affected rows means a concurrent redemption won the race and the caller
// reports ErrCouponExhausted.
func (r *CouponRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, couponID uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE coupons SET usage_limit = usage_limit - 1, used_count = used_count + 1 WHERE id = ? AND usage_limit > 0",
		couponID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCouponExhausted
	}
	return nil
}

// ListByFirm returns a firm's coupons, or the global ones when firmID is
// nil, ordered by code.
func (r *CouponRepo) ListByFirm(ctx context.Context, firmID *uint64) ([]model.Coupon, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if firmID == nil {
		rows, err = r.DB.QueryContext(ctx, "SELECT "+couponCols+" FROM coupons WHERE firm_id IS NULL ORDER BY code")
	} else {
		rows, err = r.DB.QueryContext(ctx, "SELECT "+couponCols+" FROM coupons WHERE firm_id=? ORDER BY code", *firmID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// List returns every coupon ordered by code. Admin screens only.
func (r *CouponRepo) List(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+couponCols+" FROM coupons ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a coupon. When ownerFirmID is non-nil the delete is
// restricted to that firm's coupons so a firm admin cannot remove global
// or foreign coupons.
func (r *CouponRepo) Delete(ctx context.Context, id uint64, ownerFirmID *uint64) error {
	var (
		res sql.Result
		err error
	)
	if ownerFirmID == nil {
		res, err = r.DB.ExecContext(ctx, "DELETE FROM coupons WHERE id=?", id)
	} else {
		res, err = r.DB.ExecContext(ctx, "DELETE FROM coupons WHERE id=? AND firm_id=?", id, *ownerFirmID)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
