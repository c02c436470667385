// Package search builds the ranked itinerary candidates a booking quotes
// its ordinal against. Results are ephemeral: the caller stores them in
// the requesting session and they are replaced wholesale by the next
// search.
package search

import (
	"context"
	"errors"
	"sort"

	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/repository"
)

// ErrNoMatches is returned when neither direct nor one-stop itineraries
// exist for the requested route and day.
var ErrNoMatches = errors.New("no flights match your selection")

// Params are the search inputs. Day must be 1–31 and MaxResults positive;
// the handler validates both before calling the engine.
type Params struct {
	Origin     string
	Dest       string
	Day        int
	DirectOnly bool
	MaxResults int
}

// Engine turns catalog queries into ranked itineraries.
type Engine struct {
	flights *repository.FlightRepo
}

// NewEngine returns an Engine reading from the given catalog repository.
func NewEngine(flights *repository.FlightRepo) *Engine {
	return &Engine{flights: flights}
}

// Search returns at most MaxResults itineraries for the route. Direct
// flights are fetched first; when they do not fill the quota and
// DirectOnly is unset, one-stop itineraries take the remaining slots.
// The combined list is ranked by total duration with ties broken by
// flight ids, and ordinals are assigned by final position.
func (e *Engine) Search(ctx context.Context, p Params) ([]model.Itinerary, error) {
	direct, err := e.flights.DirectFlights(ctx, p.Origin, p.Dest, p.Day, p.MaxResults)
	if err != nil {
		return nil, err
	}
	var oneStop [][2]model.Flight
	if remaining := p.MaxResults - len(direct); remaining > 0 && !p.DirectOnly {
		oneStop, err = e.flights.OneStopFlights(ctx, p.Origin, p.Dest, p.Day, remaining)
		if err != nil {
			return nil, err
		}
	}
	its := Rank(direct, oneStop)
	if len(its) == 0 {
		return nil, ErrNoMatches
	}
	return its, nil
}

// Rank merges direct flights and one-stop pairs into one itinerary list
// ordered by ascending total duration, then ascending first-leg id, then
// ascending second-leg id, and assigns 0-based ordinals in that order.
// Direct flights are already preferred by the quota split; the merged
// ordering still interleaves them with connections by duration.
func Rank(direct []model.Flight, oneStop [][2]model.Flight) []model.Itinerary {
	its := make([]model.Itinerary, 0, len(direct)+len(oneStop))
	for _, f := range direct {
		its = append(its, model.Itinerary{Flight1: f})
	}
	for _, pair := range oneStop {
		second := pair[1]
		its = append(its, model.Itinerary{Flight1: pair[0], Flight2: &second})
	}
	sort.SliceStable(its, func(i, j int) bool {
		a, b := its[i], its[j]
		if d := a.TotalDuration() - b.TotalDuration(); d != 0 {
			return d < 0
		}
		if a.Flight1.FID != b.Flight1.FID {
			return a.Flight1.FID < b.Flight1.FID
		}
		return secondFID(a) < secondFID(b)
	})
	for i := range its {
		its[i].Ordinal = i
	}
	return its
}

// secondFID orders direct itineraries before a one-stop sharing the same
// first leg.
func secondFID(it model.Itinerary) int64 {
	if it.Flight2 == nil {
		return -1
	}
	return it.Flight2.FID
}
