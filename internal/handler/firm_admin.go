package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/repository"
)

// FirmAdminHandler serves the firm back office: trip and coupon management
// scoped to the firm carried in the caller's token. The firm_id claim is
// the scope boundary; no request parameter can widen it.
type FirmAdminHandler struct {
	Trips   *repository.TripRepo
	Tickets *repository.TicketRepo
	Coupons *repository.CouponRepo
}

func NewFirmAdminHandler(trips *repository.TripRepo, tickets *repository.TicketRepo, coupons *repository.CouponRepo) *FirmAdminHandler {
	return &FirmAdminHandler{Trips: trips, Tickets: tickets, Coupons: coupons}
}

type createTripReq struct {
	FromCity   string `json:"from_city"`
	ToCity     string `json:"to_city"`
	DepartDate string `json:"depart_date"`
	DepartTime string `json:"depart_time"`
	PriceCents int64  `json:"price_cents"`
	Seats      uint32 `json:"seats"`
	BusLayout  string `json:"bus_layout"`
}

func (req *createTripReq) validate() string {
	req.FromCity = strings.TrimSpace(req.FromCity)
	req.ToCity = strings.TrimSpace(req.ToCity)
	if req.FromCity == "" || req.ToCity == "" {
		return "from_city and to_city required"
	}
	if _, err := time.Parse("2006-01-02", req.DepartDate); err != nil {
		return "invalid depart_date, want YYYY-MM-DD"
	}
	if _, err := time.Parse("15:04", req.DepartTime); err != nil {
		return "invalid depart_time, want HH:MM"
	}
	if req.PriceCents <= 0 {
		return "price_cents must be positive"
	}
	if req.Seats < 1 || req.Seats > 100 {
		return "seats must be between 1 and 100"
	}
	return ""
}

// CreateTrip adds a trip owned by the caller's firm.
func (h *FirmAdminHandler) CreateTrip(c echo.Context) error {
	firmID, err := getFirmID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no firm scope"})
	}
	var req createTripReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t := model.Trip{
		FirmID:     firmID,
		FromCity:   req.FromCity,
		ToCity:     req.ToCity,
		DepartDate: req.DepartDate,
		DepartTime: req.DepartTime,
		PriceCents: req.PriceCents,
		Seats:      req.Seats,
		BusLayout:  model.ParseBusLayout(req.BusLayout),
	}
	id, err := h.Trips.Create(ctx, &t)
	if err != nil {
		return respondError(c, err)
	}
	t.ID = id
	return c.JSON(http.StatusCreated, tripToPart(t))
}

// ListTrips returns the caller's firm's trips.
func (h *FirmAdminHandler) ListTrips(c echo.Context) error {
	firmID, err := getFirmID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no firm scope"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trips, err := h.Trips.Search(ctx, repository.SearchFilter{FirmID: firmID})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]tripPart, 0, len(trips))
	for _, t := range trips {
		out = append(out, tripToPart(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": out})
}

// DeleteTrip removes one of the caller's firm's trips. Trips with sold
// tickets cannot be removed.
func (h *FirmAdminHandler) DeleteTrip(c echo.Context) error {
	firmID, err := getFirmID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no firm scope"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Trips.Delete(ctx, id, firmID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type createCouponReq struct {
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
	UsageLimit      int32   `json:"usage_limit"`
	ExpiryDate      string  `json:"expiry_date"`
}

func (req *createCouponReq) validate() string {
	code := repository.NormalizeCode(req.Code)
	if len(code) < 3 || len(code) > 32 {
		return "code must be 3-32 characters"
	}
	if req.DiscountPercent <= 0 || req.DiscountPercent > 100 {
		return "discount_percent must be in (0,100]"
	}
	if req.UsageLimit < 1 {
		return "usage_limit must be at least 1"
	}
	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return "invalid expiry_date, want YYYY-MM-DD"
	}
	if expiry.Before(time.Now().AddDate(0, 0, -1)) {
		return "expiry_date is in the past"
	}
	return ""
}

// CreateCoupon adds a coupon scoped to the caller's firm.
func (h *FirmAdminHandler) CreateCoupon(c echo.Context) error {
	firmID, err := getFirmID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no firm scope"})
	}
	var req createCouponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cp := model.Coupon{
		Code:            repository.NormalizeCode(req.Code),
		DiscountPercent: req.DiscountPercent,
		UsageLimit:      req.UsageLimit,
		ExpiryDate:      req.ExpiryDate,
		FirmID:          &firmID,
	}
	id, err := h.Coupons.Create(ctx, &cp)
	if err != nil {
		return respondError(c, err)
	}
	cp.ID = id
	return c.JSON(http.StatusCreated, couponToPart(cp))
}

// ListCoupons returns the caller's firm's coupons.
func (h *FirmAdminHandler) ListCoupons(c echo.Context) error {
	firmID, err := getFirmID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no firm scope"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	coupons, err := h.Coupons.ListByFirm(ctx, &firmID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]couponPart, 0, len(coupons))
	for _, cp := range coupons {
		out = append(out, couponToPart(cp))
	}
	return c.JSON(http.StatusOK, echo.Map{"coupons": out})
}

// DeleteCoupon removes one of the caller's firm's coupons. Global coupons
// and other firms' coupons are out of reach.
func (h *FirmAdminHandler) DeleteCoupon(c echo.Context) error {
	firmID, err := getFirmID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no firm scope"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Coupons.Delete(ctx, id, &firmID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// TripOccupancy returns the seat map for one of the firm's trips,
// including the occupied seat list, so the back office can see sales.
func (h *FirmAdminHandler) TripOccupancy(c echo.Context) error {
	firmID, err := getFirmID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no firm scope"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Trips.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if t.FirmID != firmID {
		return respondError(c, repository.ErrForbidden)
	}
	occupied, err := h.Tickets.OccupiedSeats(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if occupied == nil {
		occupied = []uint32{}
	}
	return c.JSON(http.StatusOK, tripDetailResp{
		Trip:          tripToPart(t),
		Layout:        t.BusLayout.Grid(),
		OccupiedSeats: occupied,
	})
}
