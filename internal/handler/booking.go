package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-reservation/internal/middleware"
	"github.com/iliyamo/flight-reservation/internal/queue"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/session"
)

// BookingHandler exposes the reservation ledger: booking a searched
// itinerary, paying for a reservation and listing the user's
// reservations. All three require an authenticated session.
type BookingHandler struct {
	Bookings *repository.BookingRepo
}

func NewBookingHandler(bookings *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Bookings: bookings}
}

type bookReq struct {
	Itinerary int `json:"itinerary"`
}

// Book handles POST /v1/reservations. The body names an itinerary by the
// ordinal assigned by the session's most recent search. On success the
// new reservation id is returned and a booked event is published; the
// event is best-effort, the reservation has already committed.
func (h *BookingHandler) Book(c echo.Context) error {
	sess, ok := requireLogin(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not logged in"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	it, ok := sess.ItineraryByOrdinal(req.Itinerary)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no such itinerary"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rid, err := h.Bookings.Book(ctx, sess.Username, it)
	switch {
	case errors.Is(err, repository.ErrDayConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "you cannot book two flights in the same day"})
	case errors.Is(err, repository.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity exceeded"})
	case errors.Is(err, repository.ErrTxConflict):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}

	ev := queue.ReservationBookedEvent{
		ReservationID: rid,
		Username:      sess.Username,
		Flight1ID:     it.Flight1.FID,
		DayOfMonth:    it.Flight1.DayOfMonth,
		TotalPrice:    it.TotalPrice(),
		BookedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if it.Flight2 != nil {
		fid2 := it.Flight2.FID
		ev.Flight2ID = &fid2
	}
	go func() { _ = queue.PublishReservationBooked(context.Background(), ev) }()

	return c.JSON(http.StatusCreated, echo.Map{"reservation_id": rid})
}

// Pay handles POST /v1/reservations/:id/payment. It settles the caller's
// unpaid reservation and returns the remaining balance.
func (h *BookingHandler) Pay(c echo.Context) error {
	sess, ok := requireLogin(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not logged in"})
	}
	rid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || rid <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	newBalance, amountPaid, err := h.Bookings.Pay(ctx, sess.Username, rid)
	switch {
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cannot find unpaid reservation"})
	case errors.Is(err, repository.ErrInsufficientBalance):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient balance"})
	case errors.Is(err, repository.ErrTxConflict):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment failed"})
	}

	go func() {
		_ = queue.PublishPaymentCaptured(context.Background(), queue.PaymentCapturedEvent{
			ReservationID: rid,
			Username:      sess.Username,
			AmountPaid:    amountPaid,
			NewBalance:    newBalance,
			PaidAt:        time.Now().UTC().Format(time.RFC3339),
		})
	}()

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": rid,
		"balance":        newBalance,
	})
}

// ListReservations handles GET /v1/reservations: the caller's
// reservations in ascending id order with full flight detail.
func (h *BookingHandler) ListReservations(c echo.Context) error {
	sess, ok := requireLogin(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not logged in"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	list, err := h.Bookings.ListByUser(ctx, sess.Username)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}

// requireLogin pulls the session from the context and checks that a user
// is logged in on it.
func requireLogin(c echo.Context) (*session.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok || !sess.LoggedIn {
		return nil, false
	}
	return sess, true
}
