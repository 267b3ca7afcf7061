// Command server starts the bus reservation HTTP API.
package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/otorez/bus-reservation/internal/config"
	"github.com/otorez/bus-reservation/internal/database"
	"github.com/otorez/bus-reservation/internal/handler"
	"github.com/otorez/bus-reservation/internal/queue"
	"github.com/otorez/bus-reservation/internal/repository"
	"github.com/otorez/bus-reservation/internal/router"
	"github.com/otorez/bus-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is absent

	users := repository.NewUserRepo(db)
	firms := repository.NewFirmRepo(db)
	trips := repository.NewTripRepo(db)
	tickets := repository.NewTicketRepo(db)
	coupons := repository.NewCouponRepo(db)
	tokens := repository.NewTokenRepo(db)
	txRunner := database.NewTxRunner(db)

	couponSvc := service.NewCouponService(coupons, cfg.BusinessTZ)
	events := queue.NewPublisher()
	bookingSvc := service.NewBookingService(txRunner, trips, tickets, users, couponSvc, events, cfg.BusinessTZ, cfg.Refund)

	// Ticket events feed the fulfillment log; the consumer reconnects on
	// broker failures and never blocks the API.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Profile:   handler.NewProfileHandler(cfg, users),
		Trips:     handler.NewTripHandler(trips, tickets),
		Tickets:   handler.NewTicketHandler(bookingSvc, tickets),
		Coupons:   handler.NewCouponHandler(couponSvc, trips),
		FirmAdmin: handler.NewFirmAdminHandler(trips, tickets, coupons),
		Admin:     handler.NewAdminHandler(cfg, txRunner, firms, users, coupons),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, h, rdb)

	log.Printf("listening on :%s (env=%s)", cfg.Port, cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
