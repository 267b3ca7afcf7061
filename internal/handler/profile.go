package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otorez/bus-reservation/internal/config"
	"github.com/otorez/bus-reservation/internal/money"
	"github.com/otorez/bus-reservation/internal/repository"
	"github.com/otorez/bus-reservation/internal/utils"
)

// ProfileHandler covers self-service account operations: password change
// and credit top-up.
type ProfileHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewProfileHandler(cfg config.Config, u *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Cfg: cfg, Users: u}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword verifies the current password before replacing it.
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.NewPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password must be at least 8 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "old password is incorrect"})
	}
	if err := h.Users.UpdatePassword(ctx, uid, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type topupReq struct {
	AmountCents int64 `json:"amount_cents"`
}

type topupResp struct {
	Credit string `json:"credit"`
}

// Topup adds funds to the caller's balance. Amounts are capped per request
// so a typo cannot load an absurd balance.
func (h *ProfileHandler) Topup(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req topupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AmountCents <= 0 || req.AmountCents > h.Cfg.TopupMaxCents {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "amount must be between 0.01 and " + money.Format(h.Cfg.TopupMaxCents),
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Credit(ctx, uid, req.AmountCents); err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, topupResp{Credit: money.Format(u.CreditCents)})
}
