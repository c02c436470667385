package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-reservation/internal/middleware"
	"github.com/iliyamo/flight-reservation/internal/search"
)

// SearchHandler serves itinerary search for the calling session.
type SearchHandler struct {
	Engine *search.Engine
}

func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{Engine: engine}
}

// Search handles GET /v1/flights/search. Query parameters: origin, dest,
// day (1–31), max (positive result cap, default 5) and direct
// (true limits results to nonstop flights). The ranked itineraries
// replace the session's previous search results wholesale, so ordinals
// from earlier responses stop being bookable the moment this returns.
func (h *SearchHandler) Search(c echo.Context) error {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	origin := strings.TrimSpace(c.QueryParam("origin"))
	dest := strings.TrimSpace(c.QueryParam("dest"))
	if origin == "" || dest == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "origin/dest required"})
	}
	day, err := strconv.Atoi(c.QueryParam("day"))
	if err != nil || day < 1 || day > 31 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be 1-31"})
	}
	maxResults := 5
	if raw := c.QueryParam("max"); raw != "" {
		maxResults, err = strconv.Atoi(raw)
		if err != nil || maxResults <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "max must be positive"})
		}
	}
	directOnly := false
	if raw := c.QueryParam("direct"); raw != "" {
		directOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "direct must be a boolean"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	its, err := h.Engine.Search(ctx, search.Params{
		Origin:     origin,
		Dest:       dest,
		Day:        day,
		DirectOnly: directOnly,
		MaxResults: maxResults,
	})
	if err == search.ErrNoMatches {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no flights match your selection"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}

	sess.SetSearchResults(its)
	return c.JSON(http.StatusOK, echo.Map{"itineraries": its})
}
