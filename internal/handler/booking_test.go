package handler_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/model"
)

type bookResp struct {
	ReservationID int64 `json:"reservation_id"`
}

func (tc *testContext) book(t *testing.T, token string, ordinal int) *bookResp {
	t.Helper()
	w := tc.perform(t, http.MethodPost, "/v1/reservations",
		map[string]int{"itinerary": ordinal}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp bookResp
	decode(t, w, &resp)
	return &resp
}

func TestBookItinerary(t *testing.T) {
	tc := setupTest(t)
	defer tc.cleanup()
	tc.createAccount(t, "alice", "secret", 1000)
	token := tc.loginAs(t, "alice", "secret")

	w := tc.searchRoute(t, token, "Seattle WA", "Boston MA", 14, 5)
	require.Equal(t, http.StatusOK, w.Code)

	resp := tc.book(t, token, 0)
	assert.Equal(t, int64(1), resp.ReservationID, "reservation ids start at 1")

	// The booking shows up in the ledger with both legs resolved.
	w = tc.perform(t, http.MethodGet, "/v1/reservations", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Reservations []model.ReservationDetail `json:"reservations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Reservations, 1)
	r := list.Reservations[0]
	assert.Equal(t, int64(1), r.RID)
	assert.False(t, r.Paid)
	assert.Equal(t, int64(3), r.Flight1.FID)
	require.NotNil(t, r.Flight2)
	assert.Equal(t, int64(4), r.Flight2.FID)
}

func TestBookRequiresSearchResults(t *testing.T) {
	tc := setupTest(t)
	defer tc.cleanup()
	tc.createAccount(t, "alice", "secret", 1000)
	token := tc.loginAs(t, "alice", "secret")

	// No search on this session yet.
	w := tc.perform(t, http.MethodPost, "/v1/reservations",
		map[string]int{"itinerary": 0}, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Out-of-range ordinal after a search.
	require.Equal(t, http.StatusOK,
		tc.searchRoute(t, token, "Seattle WA", "Boston MA", 14, 5).Code)
	w = tc.perform(t, http.MethodPost, "/v1/reservations",
		map[string]int{"itinerary": 99}, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookRequiresLogin(t *testing.T) {
	tc := setupTest(t)
	defer tc.cleanup()

	// Session exists but nobody is logged in on it.
	token := tc.openSession(t)
	require.Equal(t, http.StatusOK,
		tc.searchRoute(t, token, "Seattle WA", "Boston MA", 14, 5).Code)
	w := tc.perform(t, http.MethodPost, "/v1/reservations",
		map[string]int{"itinerary": 0}, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookSameDayConflict(t *testing.T) {
	tc := setupTest(t)
	defer tc.cleanup()
	tc.createAccount(t, "alice", "secret", 1000)
	token := tc.loginAs(t, "alice", "secret")

	require.Equal(t, http.StatusOK,
		tc.searchRoute(t, token, "Seattle WA", "Boston MA", 14, 5).Code)
	tc.book(t, token, 0)

	// A different route on the same day of month is still a conflict.
	require.Equal(t, http.StatusOK,
		tc.searchRoute(t, token, "Seattle WA", "Denver CO", 14, 5).Code)
	w := tc.perform(t, http.MethodPost, "/v1/reservations",
		map[string]int{"itinerary": 0}, token)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookCapacity(t *testing.T) {
	tc := setupTest(t)
	defer tc.cleanup()
	tc.createAccount(t, "alice", "secret", 1000)
	tc.createAccount(t, "bob", "secret", 1000)

	// Flight 2 has a single seat. direct=true with max=1 pins both
	// sessions to that flight as ordinal 0.
	tokens := []string{
		tc.loginAs(t, "alice", "secret"),
		tc.loginAs(t, "bob", "secret"),
	}
	for _, token := range tokens {
		w := tc.perform(t, http.MethodGet,
			"/v1/flights/search?origin=Seattle%20WA&dest=Boston%20MA&day=14&max=1&direct=true",
			nil, token)
		require.Equal(t, http.StatusOK, w.Code)
	}

	codes := make([]int, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			w := tc.perform(t, http.MethodPost, "/v1/reservations",
				map[string]int{"itinerary": 0}, token)
			codes[i] = w.Code
		}(i, token)
	}
	wg.Wait()

	// Exactly one booking wins the seat.
	created, conflicted := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		}
	}
	assert.Equal(t, 1, created, "codes: %v", codes)
	assert.Equal(t, 1, conflicted, "codes: %v", codes)
}

func TestPayReservation(t *testing.T) {
	tc := setupTest(t)
	defer tc.cleanup()
	tc.createAccount(t, "alice", "secret", 1000)
	token := tc.loginAs(t, "alice", "secret")

	require.Equal(t, http.StatusOK,
		tc.searchRoute(t, token, "Seattle WA", "Boston MA", 14, 5).Code)
	resp := tc.book(t, token, 0) // one-stop, 50 + 60

	w := tc.perform(t, http.MethodPost, "/v1/reservations/1/payment", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pay struct {
		ReservationID int64 `json:"reservation_id"`
		Balance       int64 `json:"balance"`
	}
	decode(t, w, &pay)
	assert.Equal(t, resp.ReservationID, pay.ReservationID)
	assert.Equal(t, int64(890), pay.Balance)

	// Paying the same reservation again fails: it is no longer unpaid.
	w = tc.perform(t, http.MethodPost, "/v1/reservations/1/payment", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = tc.perform(t, http.MethodGet, "/v1/reservations", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Reservations []model.ReservationDetail `json:"reservations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Reservations, 1)
	assert.True(t, list.Reservations[0].Paid)
}

func TestPayInsufficientBalance(t *testing.T) {
	tc := setupTest(t)
	defer tc.cleanup()
	tc.createAccount(t, "poor", "secret", 10)
	token := tc.loginAs(t, "poor", "secret")

	require.Equal(t, http.StatusOK,
		tc.searchRoute(t, token, "Seattle WA", "Boston MA", 14, 5).Code)
	tc.book(t, token, 0)

	w := tc.perform(t, http.MethodPost, "/v1/reservations/1/payment", nil, token)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	// Balance is untouched and the reservation stays unpaid.
	var balance int64
	require.NoError(t, tc.DB.QueryRow(
		"SELECT balance FROM users WHERE username = ?", "poor").Scan(&balance))
	assert.Equal(t, int64(10), balance)
	var paid bool
	require.NoError(t, tc.DB.QueryRow(
		"SELECT paid FROM reservations WHERE rid = 1").Scan(&paid))
	assert.False(t, paid)
}

func TestPayForeignOrMissingReservation(t *testing.T) {
	tc := setupTest(t)
	defer tc.cleanup()
	tc.createAccount(t, "alice", "secret", 1000)
	tc.createAccount(t, "bob", "secret", 1000)

	aliceTok := tc.loginAs(t, "alice", "secret")
	require.Equal(t, http.StatusOK,
		tc.searchRoute(t, aliceTok, "Seattle WA", "Boston MA", 14, 5).Code)
	tc.book(t, aliceTok, 0)

	// Bob cannot pay for Alice's reservation; the answer is
	// indistinguishable from a reservation that does not exist.
	bobTok := tc.loginAs(t, "bob", "secret")
	w := tc.perform(t, http.MethodPost, "/v1/reservations/1/payment", nil, bobTok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = tc.perform(t, http.MethodPost, "/v1/reservations/42/payment", nil, aliceTok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = tc.perform(t, http.MethodPost, "/v1/reservations/zero/payment", nil, aliceTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
