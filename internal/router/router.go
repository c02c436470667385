package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/flight-reservation/internal/config"
	"github.com/iliyamo/flight-reservation/internal/handler"
	"github.com/iliyamo/flight-reservation/internal/middleware"
	"github.com/iliyamo/flight-reservation/internal/session"
)

// Register wires every route on the provided Echo instance.
//
// Unauthenticated endpoints: health check, account creation, session
// opening and single-flight lookup. Everything else runs behind the
// session middleware, which resolves the bearer token to an in-process
// session before the handler executes.
func Register(
	e *echo.Echo,
	cfg config.Config,
	rl config.RateLimitConfig,
	rdb *redis.Client,
	store *session.Store,
	auth *handler.AuthHandler,
	flights *handler.FlightHandler,
	search *handler.SearchHandler,
	bookings *handler.BookingHandler,
) {
	e.Use(middleware.RateLimit(rl, rdb))

	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.POST("/users", auth.CreateAccount)
	v1.POST("/sessions", auth.OpenSession)
	v1.GET("/flights/:id", flights.GetFlight)

	// Session-scoped routes. A session token is required even for login:
	// login binds a username to an already-open session, mirroring a
	// per-connection command loop.
	sg := v1.Group("", middleware.SessionAuth(cfg.JWTSecret, store))
	sg.DELETE("/sessions", auth.CloseSession)
	sg.POST("/login", auth.Login)
	sg.GET("/me", auth.Me)
	sg.GET("/flights/search", search.Search)
	sg.POST("/reservations", bookings.Book)
	sg.POST("/reservations/:id/payment", bookings.Pay)
	sg.GET("/reservations", bookings.ListReservations)
}
