package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otorez/bus-reservation/internal/config"
	"github.com/otorez/bus-reservation/internal/handler"
	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/utils"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	Register(e, config.Config{JWTSecret: testSecret}, Handlers{
		Tickets: handler.NewTicketHandler(nil, nil),
	}, nil)
	return e
}

func bearerFor(t *testing.T, role model.Role, firmID *uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, 5, string(role), firmID, 15)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func postTickets(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/tickets", strings.NewReader(`{"trip_id":0}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// Buying tickets is a customer action; staff tokens must be rejected at
// the route guard no matter how valid they are.
func TestTicketRoutesCustomerOnly(t *testing.T) {
	e := newTestRouter(t)

	firmID := uint64(11)
	assert.Equal(t, http.StatusForbidden, postTickets(e, bearerFor(t, model.RoleAdmin, nil)).Code)
	assert.Equal(t, http.StatusForbidden, postTickets(e, bearerFor(t, model.RoleFirmAdmin, &firmID)).Code)
	assert.Equal(t, http.StatusUnauthorized, postTickets(e, "").Code)

	// A customer token clears the guard and reaches handler validation.
	rec := postTickets(e, bearerFor(t, model.RoleCustomer, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "trip_id")
}

func TestMeRoutesCustomerOnly(t *testing.T) {
	e := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/me/tickets", nil)
	req.Header.Set(echo.HeaderAuthorization, bearerFor(t, model.RoleAdmin, nil))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
