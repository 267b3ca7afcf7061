package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otorez/bus-reservation/internal/config"
	"github.com/otorez/bus-reservation/internal/database"
	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/repository"
)

// AdminHandler serves the platform back office: firm provisioning, user
// management and global coupons. ADMIN role only.
type AdminHandler struct {
	Cfg     config.Config
	Tx      *database.TxRunner
	Firms   *repository.FirmRepo
	Users   *repository.UserRepo
	Coupons *repository.CouponRepo
}

func NewAdminHandler(cfg config.Config, tx *database.TxRunner, firms *repository.FirmRepo, users *repository.UserRepo, coupons *repository.CouponRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Tx: tx, Firms: firms, Users: users, Coupons: coupons}
}

type createFirmReq struct {
	Name          string `json:"name"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
}

type createFirmResp struct {
	FirmID      uint64 `json:"firm_id"`
	Name        string `json:"name"`
	AdminUserID uint64 `json:"admin_user_id"`
}

// CreateFirm provisions a firm together with its first firm-admin account
// in one transaction, so a half-created firm without an operator can never
// exist.
func (h *AdminHandler) CreateFirm(c echo.Context) error {
	var req createFirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if len(req.AdminUsername) < 3 || len(req.AdminUsername) > 50 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "admin_username must be 3-50 characters"})
	}
	if len(req.AdminPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "admin_password must be at least 8 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var (
		firmID uint64
		userID uint64
	)
	err := h.Tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		firmID, err = h.Firms.CreateTx(ctx, tx, req.Name)
		if err != nil {
			return err
		}
		userID, err = h.Users.CreateTx(ctx, tx, req.AdminUsername, req.AdminPassword, model.RoleFirmAdmin, &firmID, h.Cfg.BcryptCost)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, createFirmResp{FirmID: firmID, Name: req.Name, AdminUserID: userID})
}

// ListFirms returns all firms.
func (h *AdminHandler) ListFirms(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	firms, err := h.Firms.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	type firmPart struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}
	out := make([]firmPart, 0, len(firms))
	for _, f := range firms {
		out = append(out, firmPart{ID: f.ID, Name: f.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"firms": out})
}

// DeleteFirm removes a firm without dependents.
func (h *AdminHandler) DeleteFirm(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid firm id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Firms.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUsers returns all accounts.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, userToPart(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

type updateRoleReq struct {
	Role   string  `json:"role"`
	FirmID *uint64 `json:"firm_id"`
}

// UpdateUserRole changes an account's role. FIRM_ADMIN requires a firm_id;
// the other roles must not carry one.
func (h *AdminHandler) UpdateUserRole(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	if role == model.RoleFirmAdmin && req.FirmID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "firm_id required for FIRM_ADMIN"})
	}
	if role != model.RoleFirmAdmin && req.FirmID != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "firm_id only valid for FIRM_ADMIN"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if req.FirmID != nil {
		if _, err := h.Firms.GetByID(ctx, *req.FirmID); err != nil {
			return respondError(c, err)
		}
	}
	if err := h.Users.UpdateRole(ctx, id, role, req.FirmID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteUser removes an account without purchase history.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type adminCreateCouponReq struct {
	createCouponReq
	FirmID *uint64 `json:"firm_id"` // nil means platform-wide
}

// CreateCoupon adds a coupon for any firm, or a platform-wide one when
// firm_id is omitted.
func (h *AdminHandler) CreateCoupon(c echo.Context) error {
	var req adminCreateCouponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if req.FirmID != nil {
		if _, err := h.Firms.GetByID(ctx, *req.FirmID); err != nil {
			return respondError(c, err)
		}
	}
	cp := model.Coupon{
		Code:            repository.NormalizeCode(req.Code),
		DiscountPercent: req.DiscountPercent,
		UsageLimit:      req.UsageLimit,
		ExpiryDate:      req.ExpiryDate,
		FirmID:          req.FirmID,
	}
	id, err := h.Coupons.Create(ctx, &cp)
	if err != nil {
		return respondError(c, err)
	}
	cp.ID = id
	return c.JSON(http.StatusCreated, couponToPart(cp))
}

// ListCoupons returns every coupon, firm and global alike.
func (h *AdminHandler) ListCoupons(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	coupons, err := h.Coupons.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]couponPart, 0, len(coupons))
	for _, cp := range coupons {
		out = append(out, couponToPart(cp))
	}
	return c.JSON(http.StatusOK, echo.Map{"coupons": out})
}

// DeleteCoupon removes any coupon.
func (h *AdminHandler) DeleteCoupon(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Coupons.Delete(ctx, id, nil); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
