package repository // repository for the read-only flight catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// flightCacheTTL bounds how long a cached catalog row is served. The
// catalog never changes at runtime, so the TTL exists only to bound
// memory on the Redis side.
const flightCacheTTL = 15 * time.Minute

// FlightRepo reads the `flights` reference table. The table is owned by
// the catalog provisioning process; this repository never writes it.
// When a Redis client is supplied, per-flight lookups are cached; a nil
// client disables caching without changing behavior.
type FlightRepo struct {
	db  *sql.DB
	rdb *redis.Client
}

// NewFlightRepo constructs a FlightRepo. rdb may be nil.
func NewFlightRepo(db *sql.DB, rdb *redis.Client) *FlightRepo {
	return &FlightRepo{db: db, rdb: rdb}
}

const flightColumns = `fid, day_of_month, carrier_id, flight_num, origin_city, dest_city, actual_time, capacity, price`

func scanFlight(row interface{ Scan(...any) error }, f *model.Flight) error {
	return row.Scan(&f.FID, &f.DayOfMonth, &f.CarrierID, &f.FlightNum,
		&f.OriginCity, &f.DestCity, &f.Duration, &f.Capacity, &f.Price)
}

// GetByID returns one flight by id, consulting the cache first.
// ErrFlightNotFound is returned when the id is absent from the catalog.
func (r *FlightRepo) GetByID(ctx context.Context, fid int64) (model.Flight, error) {
	if f, ok := r.cacheGet(ctx, fid); ok {
		return f, nil
	}
	var f model.Flight
	err := scanFlight(r.db.QueryRowContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE fid = ?`, fid), &f)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Flight{}, ErrFlightNotFound
	}
	if err != nil {
		return model.Flight{}, err
	}
	r.cacheSet(ctx, f)
	return f, nil
}

// DirectFlights returns non-canceled flights from origin to dest on the
// given day, ordered by ascending duration then ascending fid, capped at
// limit rows.
func (r *FlightRepo) DirectFlights(ctx context.Context, origin, dest string, day, limit int) ([]model.Flight, error) {
	const q = `SELECT ` + flightColumns + `
		FROM flights
		WHERE canceled = 0 AND origin_city = ? AND dest_city = ? AND day_of_month = ?
		ORDER BY actual_time ASC, fid ASC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, origin, dest, day, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Flight
	for rows.Next() {
		var f model.Flight
		if err := scanFlight(rows, &f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// OneStopFlights returns pairs of non-canceled same-day flights where the
// first leg's destination is the second leg's origin, ordered by the
// summed duration then by (fid1, fid2), capped at limit pairs.
func (r *FlightRepo) OneStopFlights(ctx context.Context, origin, dest string, day, limit int) ([][2]model.Flight, error) {
	const q = `SELECT
			f1.fid, f1.day_of_month, f1.carrier_id, f1.flight_num, f1.origin_city, f1.dest_city, f1.actual_time, f1.capacity, f1.price,
			f2.fid, f2.day_of_month, f2.carrier_id, f2.flight_num, f2.origin_city, f2.dest_city, f2.actual_time, f2.capacity, f2.price
		FROM flights f1
		JOIN flights f2 ON f1.dest_city = f2.origin_city AND f1.day_of_month = f2.day_of_month
		WHERE f1.canceled = 0 AND f2.canceled = 0
		  AND f1.origin_city = ? AND f2.dest_city = ? AND f1.day_of_month = ?
		ORDER BY (f1.actual_time + f2.actual_time) ASC, f1.fid ASC, f2.fid ASC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, origin, dest, day, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][2]model.Flight
	for rows.Next() {
		var a, b model.Flight
		if err := rows.Scan(
			&a.FID, &a.DayOfMonth, &a.CarrierID, &a.FlightNum, &a.OriginCity, &a.DestCity, &a.Duration, &a.Capacity, &a.Price,
			&b.FID, &b.DayOfMonth, &b.CarrierID, &b.FlightNum, &b.OriginCity, &b.DestCity, &b.Duration, &b.Capacity, &b.Price,
		); err != nil {
			return nil, err
		}
		out = append(out, [2]model.Flight{a, b})
	}
	return out, rows.Err()
}

func flightCacheKey(fid int64) string { return fmt.Sprintf("flight:%d", fid) }

func (r *FlightRepo) cacheGet(ctx context.Context, fid int64) (model.Flight, bool) {
	if r.rdb == nil {
		return model.Flight{}, false
	}
	raw, err := r.rdb.Get(ctx, flightCacheKey(fid)).Bytes()
	if err != nil {
		return model.Flight{}, false
	}
	var f model.Flight
	if err := json.Unmarshal(raw, &f); err != nil {
		return model.Flight{}, false
	}
	return f, true
}

func (r *FlightRepo) cacheSet(ctx context.Context, f model.Flight) {
	if r.rdb == nil {
		return
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	// Cache failures are invisible: the DB remains the source of truth.
	_ = r.rdb.Set(ctx, flightCacheKey(f.FID), raw, flightCacheTTL).Err()
}
