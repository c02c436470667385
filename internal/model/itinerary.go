package model

// Itinerary is a single-day journey made of one flight (direct) or two
// connecting flights. Itineraries are never persisted: they exist only
// inside the session that produced them, and the Ordinal is the index
// clients quote when booking. A new search replaces the whole list, so
// ordinals from an older search are meaningless afterwards.
type Itinerary struct {
	Ordinal int     `json:"ordinal"`
	Flight1 Flight  `json:"flight1"`
	Flight2 *Flight `json:"flight2,omitempty"` // nil for direct itineraries
}

// Direct reports whether the itinerary has a single leg.
func (it Itinerary) Direct() bool { return it.Flight2 == nil }

// TotalDuration returns the summed flying time in minutes.
func (it Itinerary) TotalDuration() int {
	total := it.Flight1.Duration
	if it.Flight2 != nil {
		total += it.Flight2.Duration
	}
	return total
}

// TotalPrice returns the combined fare of both legs.
func (it Itinerary) TotalPrice() int64 {
	total := it.Flight1.Price
	if it.Flight2 != nil {
		total += it.Flight2.Price
	}
	return total
}
