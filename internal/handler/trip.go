package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/money"
	"github.com/otorez/bus-reservation/internal/repository"
)

// TripHandler serves the public trip catalog: search and the per-trip
// seat map. These endpoints need no authentication.
type TripHandler struct {
	Trips   *repository.TripRepo
	Tickets *repository.TicketRepo
}

func NewTripHandler(trips *repository.TripRepo, tickets *repository.TicketRepo) *TripHandler {
	return &TripHandler{Trips: trips, Tickets: tickets}
}

type tripPart struct {
	ID         uint64 `json:"id"`
	FirmID     uint64 `json:"firm_id"`
	FromCity   string `json:"from_city"`
	ToCity     string `json:"to_city"`
	DepartDate string `json:"depart_date"`
	DepartTime string `json:"depart_time"`
	Price      string `json:"price"`
	PriceCents int64  `json:"price_cents"`
	Seats      uint32 `json:"seats"`
	BusLayout  string `json:"bus_layout"`
}

func tripToPart(t model.Trip) tripPart {
	return tripPart{
		ID:         t.ID,
		FirmID:     t.FirmID,
		FromCity:   t.FromCity,
		ToCity:     t.ToCity,
		DepartDate: t.DepartDate,
		DepartTime: t.DepartTime,
		Price:      money.Format(t.PriceCents),
		PriceCents: t.PriceCents,
		Seats:      t.Seats,
		BusLayout:  string(t.BusLayout),
	}
}

// Search lists trips matching optional from/to/date/firm_id query params.
func (h *TripHandler) Search(c echo.Context) error {
	f := repository.SearchFilter{
		FromCity: c.QueryParam("from"),
		ToCity:   c.QueryParam("to"),
		Date:     c.QueryParam("date"),
	}
	if s := c.QueryParam("firm_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid firm_id"})
		}
		f.FirmID = id
	}
	if f.Date != "" {
		if _, err := time.Parse("2006-01-02", f.Date); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trips, err := h.Trips.Search(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]tripPart, 0, len(trips))
	for _, t := range trips {
		out = append(out, tripToPart(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": out})
}

type tripDetailResp struct {
	Trip          tripPart         `json:"trip"`
	Layout        model.LayoutGrid `json:"layout"`
	OccupiedSeats []uint32         `json:"occupied_seats"`
}

// Get returns one trip with its layout grid and the currently occupied
// seat numbers, enough for a client to draw the seat map.
func (h *TripHandler) Get(c echo.Context) error {
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
