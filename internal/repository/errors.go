// Package repository defines sentinel errors reused across the
// repositories. Handlers compare against these with errors.Is to decide
// which error kind and HTTP status a failed operation maps to; any other
// error from this package is an infrastructure failure and surfaces as a
// generic one.
package repository

import "errors"

// ErrUsernameExists is returned when an account with the requested
// (lowercase) username already exists.
var ErrUsernameExists = errors.New("username already exists")

// ErrDayConflict is returned from booking when the user already holds a
// reservation whose flights fall on the same calendar day.
var ErrDayConflict = errors.New("reservation day conflict")

// ErrCapacityExceeded is returned from booking when a flight in the
// itinerary has no seats left.
var ErrCapacityExceeded = errors.New("flight capacity exceeded")

// ErrReservationNotFound covers a missing reservation, a reservation
// owned by another user, and an already-paid reservation. The three are
// deliberately indistinguishable so that payment probes cannot reveal
// other users' reservations.
var ErrReservationNotFound = errors.New("unpaid reservation not found")

// ErrInsufficientBalance is returned from payment when the user's
// balance cannot cover the itinerary price. Nothing is debited.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrTxConflict is returned when a transaction kept deadlocking after
// all retry attempts. The operation had no effect and may be retried by
// the caller.
var ErrTxConflict = errors.New("transaction conflict, try again")

// ErrFlightNotFound is returned when a flight id is absent from the
// catalog.
var ErrFlightNotFound = errors.New("flight not found")
