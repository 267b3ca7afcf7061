// Package router wires handlers, middleware and route groups onto the
// Echo instance. Route registration is the only place where the role
// requirements of each surface are spelled out.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/otorez/bus-reservation/internal/config"
	"github.com/otorez/bus-reservation/internal/handler"
	"github.com/otorez/bus-reservation/internal/middleware"
	"github.com/otorez/bus-reservation/internal/model"
)

// Handlers groups every handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Profile   *handler.ProfileHandler
	Trips     *handler.TripHandler
	Tickets   *handler.TicketHandler
	Coupons   *handler.CouponHandler
	FirmAdmin *handler.FirmAdminHandler
	Admin     *handler.AdminHandler
}

// Register mounts all routes. rdb may be nil, in which case rate limiting
// and response caching silently pass everything through.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(echomw.Logger())

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	respCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/healthz", handler.Health)

	// Public surface: token issuance and the trip catalog.
	auth := e.Group("/v1/auth", rateLimit)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	pub := e.Group("/v1/trips", respCache)
	pub.GET("", h.Trips.Search)
	pub.GET("/:id", h.Trips.Get)

	// Read-only check used by checkout screens before the buyer commits.
	e.POST("/v1/coupons/preview", h.Coupons.Preview)

	jwtAuth := middleware.JWTAuth(cfg.JWTSecret)
	customerOnly := middleware.RequireRole(string(model.RoleCustomer))

	// Authenticated self-service. Staff accounts never hold tickets or
	// balances, so the whole surface is customer-only.
	me := e.Group("/v1/me", jwtAuth, customerOnly)
	me.GET("", h.Auth.Me)
	me.POST("/password", h.Profile.ChangePassword)
	me.POST("/credit", h.Profile.Topup)
	me.GET("/tickets", h.Tickets.ListMine)

	// Purchase path. Rate limited: it is the hot, abusable endpoint.
	tickets := e.Group("/v1/tickets", jwtAuth, customerOnly)
	tickets.POST("", h.Tickets.Purchase, rateLimit)
	tickets.GET("/:id", h.Tickets.Get)
	tickets.POST("/:id/cancel", h.Tickets.Cancel)

	// Firm back office.
	firm := e.Group("/v1/firm", jwtAuth, middleware.RequireRole(string(model.RoleFirmAdmin)))
	firm.POST("/trips", h.FirmAdmin.CreateTrip)
	firm.GET("/trips", h.FirmAdmin.ListTrips)
	firm.GET("/trips/:id/occupancy", h.FirmAdmin.TripOccupancy)
	firm.DELETE("/trips/:id", h.FirmAdmin.DeleteTrip)
	firm.POST("/coupons", h.FirmAdmin.CreateCoupon)
	firm.GET("/coupons", h.FirmAdmin.ListCoupons)
	firm.DELETE("/coupons/:id", h.FirmAdmin.DeleteCoupon)

	// Platform back office.
	admin := e.Group("/v1/admin", jwtAuth, middleware.RequireRole(string(model.RoleAdmin)))
	admin.POST("/firms", h.Admin.CreateFirm)
	admin.GET("/firms", h.Admin.ListFirms)
	admin.DELETE("/firms/:id", h.Admin.DeleteFirm)
	admin.GET("/users", h.Admin.ListUsers)
	admin.PATCH("/users/:id", h.Admin.UpdateUserRole)
	admin.DELETE("/users/:id", h.Admin.DeleteUser)
	admin.POST("/coupons", h.Admin.CreateCoupon)
	admin.GET("/coupons", h.Admin.ListCoupons)
	admin.DELETE("/coupons/:id", h.Admin.DeleteCoupon)
}
