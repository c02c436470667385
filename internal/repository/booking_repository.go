package repository // repository for the reservation ledger and payments

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// BookingRepo owns the `reservations` table and the balance debits that
// pay for them. Both mutations run as single transactions under the
// conflict retry wrapper: every check is re-read from scratch on each
// attempt, so a transaction that loses a deadlock race observes the
// winner's state the next time around.
//
// Locking discipline: the user row is locked first to serialize a user's
// own bookings (the one-reservation-per-day rule), then each flight row
// to serialize capacity checks per flight. Payment locks the reservation
// row before the user row.
type BookingRepo struct {
	db      *sql.DB
	Retries int // transaction attempts, DefaultRetryAttempts when zero
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB, retries int) *BookingRepo {
	return &BookingRepo{db: db, Retries: retries}
}

// Book persists the chosen itinerary as a new unpaid reservation for
// username and returns the assigned reservation id. It fails with
// ErrDayConflict when the user already holds a reservation on the
// itinerary's day and with ErrCapacityExceeded when any leg is full.
// The capacity check, id assignment and insert commit atomically; on any
// failure no partial reservation remains.
func (r *BookingRepo) Book(ctx context.Context, username string, it model.Itinerary) (int64, error) {
	username = normalizeUsername(username)
	var rid int64
	err := WithRetry(ctx, r.db, r.Retries, func(tx *sql.Tx) error {
		// Lock the owner row so two sessions booking for the same user
		// cannot both pass the day-conflict check.
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM users WHERE username = ? FOR UPDATE`, username).Scan(&exists); err != nil {
			return err
		}

		// Both legs share the day, so joining on flight1 covers the
		// whole itinerary.
		var sameDay int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reservations r
			 JOIN flights f ON r.flight1_id = f.fid
			 WHERE r.username = ? AND f.day_of_month = ?`,
			username, it.Flight1.DayOfMonth).Scan(&sameDay)
		if err != nil {
			return err
		}
		if sameDay > 0 {
			return ErrDayConflict
		}

		legs := []int64{it.Flight1.FID}
		if it.Flight2 != nil {
			legs = append(legs, it.Flight2.FID)
		}
		for _, fid := range legs {
			if err := r.checkCapacityTx(ctx, tx, fid); err != nil {
				return err
			}
		}

		// Reservation ids are the running row count plus one. The
		// locking read blocks concurrent allocators until this
		// transaction resolves, keeping ids unique and monotonic.
		var count int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reservations FOR UPDATE`).Scan(&count); err != nil {
			return err
		}
		rid = count + 1

		var flight2 sql.NullInt64
		if it.Flight2 != nil {
			flight2 = sql.NullInt64{Int64: it.Flight2.FID, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reservations (rid, username, paid, flight1_id, flight2_id) VALUES (?, ?, 0, ?, ?)`,
			rid, username, it.Flight1.FID, flight2)
		return err
	})
	if err != nil {
		return 0, err
	}
	return rid, nil
}

// checkCapacityTx locks the flight row and fails with ErrCapacityExceeded
// when active reservations already fill it. The row lock makes the
// check-then-insert race between two bookings of the same flight
// impossible: the loser waits and then counts the winner's row.
func (r *BookingRepo) checkCapacityTx(ctx context.Context, tx *sql.Tx, fid int64) error {
	var capacity int
	err := tx.QueryRowContext(ctx,
		`SELECT capacity FROM flights WHERE fid = ? FOR UPDATE`, fid).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFlightNotFound
	}
	if err != nil {
		return err
	}
	var taken int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE flight1_id = ? OR flight2_id = ?`,
		fid, fid).Scan(&taken)
	if err != nil {
		return err
	}
	if taken >= capacity {
		return ErrCapacityExceeded
	}
	return nil
}

// Pay marks the reservation paid and debits the owner's balance in one
// transaction. A missing, foreign or already-paid reservation fails with
// ErrReservationNotFound; a balance short of the itinerary price fails
// with ErrInsufficientBalance and debits nothing. Flag and debit commit
// together or not at all. On success it returns the remaining balance
// and the amount debited.
func (r *BookingRepo) Pay(ctx context.Context, username string, rid int64) (int64, int64, error) {
	username = normalizeUsername(username)
	var newBalance, amountPaid int64
	err := WithRetry(ctx, r.db, r.Retries, func(tx *sql.Tx) error {
		res := model.Reservation{RID: rid}
		var flight2 sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT username, paid, flight1_id, flight2_id FROM reservations WHERE rid = ? FOR UPDATE`,
			rid).Scan(&res.Username, &res.Paid, &res.Flight1ID, &flight2)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReservationNotFound
		}
		if err != nil {
			return err
		}
		if flight2.Valid {
			res.Flight2ID = &flight2.Int64
		}
		if res.Username != username || res.Paid {
			return ErrReservationNotFound
		}

		total, err := r.legPriceTx(ctx, tx, res.Flight1ID)
		if err != nil {
			return err
		}
		if res.Flight2ID != nil {
			price2, err := r.legPriceTx(ctx, tx, *res.Flight2ID)
			if err != nil {
				return err
			}
			total += price2
		}

		var balance int64
		err = tx.QueryRowContext(ctx,
			`SELECT balance FROM users WHERE username = ? FOR UPDATE`, username).Scan(&balance)
		if err != nil {
			return err
		}
		if balance < total {
			return ErrInsufficientBalance
		}
		newBalance = balance - total
		amountPaid = total

		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET paid = 1 WHERE rid = ?`, rid); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET balance = ? WHERE username = ?`, newBalance, username)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return newBalance, amountPaid, nil
}

// ListByUser returns the user's reservations in ascending id order, each
// joined with the full flight rows for display.
func (r *BookingRepo) ListByUser(ctx context.Context, username string) ([]model.ReservationDetail, error) {
	username = normalizeUsername(username)
	const q = `SELECT r.rid, r.paid,
			f1.fid, f1.day_of_month, f1.carrier_id, f1.flight_num, f1.origin_city, f1.dest_city, f1.actual_time, f1.capacity, f1.price,
			f2.fid, f2.day_of_month, f2.carrier_id, f2.flight_num, f2.origin_city, f2.dest_city, f2.actual_time, f2.capacity, f2.price
		FROM reservations r
		JOIN flights f1 ON r.flight1_id = f1.fid
		LEFT JOIN flights f2 ON r.flight2_id = f2.fid
		WHERE r.username = ?
		ORDER BY r.rid ASC`
	rows, err := r.db.QueryContext(ctx, q, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationDetail{}
	for rows.Next() {
		var (
			det  model.ReservationDetail
			fid2 sql.NullInt64
			day2 sql.NullInt64
			cid2 sql.NullString
			num2 sql.NullString
			org2 sql.NullString
			dst2 sql.NullString
			dur2 sql.NullInt64
			cap2 sql.NullInt64
			prc2 sql.NullInt64
		)
		if err := rows.Scan(&det.RID, &det.Paid,
			&det.Flight1.FID, &det.Flight1.DayOfMonth, &det.Flight1.CarrierID, &det.Flight1.FlightNum,
			&det.Flight1.OriginCity, &det.Flight1.DestCity, &det.Flight1.Duration, &det.Flight1.Capacity, &det.Flight1.Price,
			&fid2, &day2, &cid2, &num2, &org2, &dst2, &dur2, &cap2, &prc2,
		); err != nil {
			return nil, err
		}
		if fid2.Valid {
			det.Flight2 = &model.Flight{
				FID:        fid2.Int64,
				DayOfMonth: int(day2.Int64),
				CarrierID:  cid2.String,
				FlightNum:  num2.String,
				OriginCity: org2.String,
				DestCity:   dst2.String,
				Duration:   int(dur2.Int64),
				Capacity:   int(cap2.Int64),
				Price:      prc2.Int64,
			}
		}
		out = append(out, det)
	}
	return out, rows.Err()
}

// legPriceTx reads one flight's fare inside the transaction. The catalog
// is immutable, so no lock is taken.
func (r *BookingRepo) legPriceTx(ctx context.Context, tx *sql.Tx, fid int64) (int64, error) {
	var price int64
	err := tx.QueryRowContext(ctx,
		`SELECT price FROM flights WHERE fid = ?`, fid).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrFlightNotFound
	}
	return price, err
}
