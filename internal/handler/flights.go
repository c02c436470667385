package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-reservation/internal/repository"
)

// FlightHandler serves public flight catalog lookups.
type FlightHandler struct {
	Flights *repository.FlightRepo
}

func NewFlightHandler(flights *repository.FlightRepo) *FlightHandler {
	return &FlightHandler{Flights: flights}
}

// GetFlight handles GET /v1/flights/:id. It returns a single flight by id;
// no session is required so clients can inspect a flight before booking.
func (h *FlightHandler) GetFlight(c echo.Context) error {
	fid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || fid <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	f, err := h.Flights.GetByID(ctx, fid)
	if errors.Is(err, repository.ErrFlightNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "flight not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, f)
}
