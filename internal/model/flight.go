package model

// Flight mirrors a row of the read-only `flights` reference table.
// The catalog is provisioned externally; this service only queries it.
//
// Fields:
//  FID        – unique flight identifier.
//  DayOfMonth – calendar day (1–31) the flight operates on.
//  CarrierID  – operating carrier code.
//  FlightNum  – carrier-assigned flight number.
//  OriginCity – departure city.
//  DestCity   – arrival city.
//  Duration   – scheduled duration in minutes.
//  Capacity   – ceiling on concurrently active reservations.
//  Price      – fare in whole currency units.
type Flight struct {
	FID        int64  `json:"fid"`
	DayOfMonth int    `json:"day_of_month"`
	CarrierID  string `json:"carrier_id"`
	FlightNum  string `json:"flight_num"`
	OriginCity string `json:"origin_city"`
	DestCity   string `json:"dest_city"`
	Duration   int    `json:"duration_minutes"`
	Capacity   int    `json:"capacity"`
	Price      int64  `json:"price"`
}
