package handler // handler defines http handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/otorez/bus-reservation/internal/repository"
	"github.com/otorez/bus-reservation/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// JWT claims decode numbers as float64, so several representations are
// accepted.
func getUserID(c echo.Context) (uint64, error) {
	return contextUint(c, "user_id")
}

// getFirmID extracts the firm_id claim set for firm-admin tokens.
func getFirmID(c echo.Context) (uint64, error) {
	return contextUint(c, "firm_id")
}

func contextUint(c echo.Context, key string) (uint64, error) {
	v := c.Get(key)
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid " + key + " in context")
}

// pathID parses a numeric :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// respondError maps the typed errors coming out of the service and
// repository layers onto HTTP responses. Coupon failures answer 422 with
// the specific reason so the buyer knows why the whole purchase was
// aborted; unrecognized errors are logged and reported generically.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrSeatTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat already taken, choose another seat"})
	case errors.Is(err, repository.ErrInsufficientCredit):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient credit"})
	case errors.Is(err, repository.ErrCouponNotFound),
		errors.Is(err, repository.ErrCouponExpired),
		errors.Is(err, repository.ErrCouponExhausted),
		errors.Is(err, repository.ErrCouponScope):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrTicketCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already cancelled"})
	case errors.Is(err, repository.ErrCancelWindow):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "cancellation requires at least one hour before departure"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "operation conflicts with existing records"})
	case errors.Is(err, service.ErrInvalidSeat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat number"})
	case errors.Is(err, service.ErrPersistence):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	log.Printf("handler: unexpected error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
