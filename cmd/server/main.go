package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-reservation/internal/config"
	"github.com/iliyamo/flight-reservation/internal/database"
	"github.com/iliyamo/flight-reservation/internal/handler"
	"github.com/iliyamo/flight-reservation/internal/queue"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/router"
	"github.com/iliyamo/flight-reservation/internal/search"
	"github.com/iliyamo/flight-reservation/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis is optional: a nil client disables the flight cache and the
	// rate limiter falls through to pass-through mode.
	rdb := config.NewRedisClient()
	rl := config.LoadRateLimitConfig()

	store := session.NewStore(time.Duration(cfg.SessionTTLMin) * time.Minute)

	users := repository.NewUserRepo(db, cfg.BookingRetries)
	flights := repository.NewFlightRepo(db, rdb)
	bookings := repository.NewBookingRepo(db, cfg.BookingRetries)
	engine := search.NewEngine(flights)

	authH := handler.NewAuthHandler(cfg, users, store)
	flightH := handler.NewFlightHandler(flights)
	searchH := handler.NewSearchHandler(engine)
	bookingH := handler.NewBookingHandler(bookings)

	// Audit trail consumer; reconnects on broker failure and degrades to
	// a no-op when RabbitMQ is unreachable.
	go queue.StartAuditConsumer()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, rl, rdb, store, authH, flightH, searchH, bookingH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
