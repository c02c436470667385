package handler_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/config"
	"github.com/iliyamo/flight-reservation/internal/database"
	"github.com/iliyamo/flight-reservation/internal/handler"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/router"
	"github.com/iliyamo/flight-reservation/internal/search"
	"github.com/iliyamo/flight-reservation/internal/session"
)

// testContext holds everything a handler test needs: the wired router,
// the raw database handle for seeding and assertions, and the session
// store so tests can inspect server-side state when required.
type testContext struct {
	E     *echo.Echo
	DB    *sql.DB
	Store *session.Store
	Cfg   config.Config
}

func testEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupTest connects to the test database and builds the full handler
// stack without Redis or a message broker, both of which degrade to
// no-ops. Tests are skipped when no MySQL instance is reachable.
func setupTest(t *testing.T) *testContext {
	t.Helper()

	cfg := config.Config{
		Env:            "test",
		JWTSecret:      "handler-test-secret",
		SessionTTLMin:  5,
		BcryptCost:     4,
		BookingRetries: 5,
	}

	db, err := database.Open(
		testEnv("TEST_DB_USER", "root"),
		testEnv("TEST_DB_PASS", ""),
		testEnv("TEST_DB_HOST", "127.0.0.1"),
		testEnv("TEST_DB_PORT", "3306"),
		testEnv("TEST_DB_NAME", "flights_test"),
	)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	require.NoError(t, database.Migrate(db))
	require.NoError(t, createFlightsTable(db))
	resetTables(t, db)
	seedFlights(t, db)

	store := session.NewStore(time.Duration(cfg.SessionTTLMin) * time.Minute)
	users := repository.NewUserRepo(db, cfg.BookingRetries)
	flights := repository.NewFlightRepo(db, nil)
	bookings := repository.NewBookingRepo(db, cfg.BookingRetries)

	e := echo.New()
	router.Register(e, cfg, config.RateLimitConfig{}, nil, store,
		handler.NewAuthHandler(cfg, users, store),
		handler.NewFlightHandler(flights),
		handler.NewSearchHandler(search.NewEngine(flights)),
		handler.NewBookingHandler(bookings),
	)

	return &testContext{E: e, DB: db, Store: store, Cfg: cfg}
}

func (tc *testContext) cleanup() {
	if tc.DB != nil {
		tc.DB.Close()
	}
}

func createFlightsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS flights (
		fid          BIGINT PRIMARY KEY,
		day_of_month INT NOT NULL,
		carrier_id   VARCHAR(7) NOT NULL,
		flight_num   VARCHAR(7) NOT NULL,
		origin_city  VARCHAR(64) NOT NULL,
		dest_city    VARCHAR(64) NOT NULL,
		actual_time  INT NOT NULL,
		capacity     INT NOT NULL,
		price        BIGINT NOT NULL,
		canceled     TINYINT(1) NOT NULL DEFAULT 0
	) ENGINE=InnoDB`)
	return err
}

func resetTables(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, stmt := range []string{
		"DELETE FROM reservations",
		"DELETE FROM users",
		"DELETE FROM flights",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

// seedFlights loads a small day-14 catalog between Seattle and Boston:
// two direct flights (one with a single seat), a faster one-stop pair
// through Chicago, a canceled direct that must never appear, and an
// unrelated Seattle-Denver flight for day-conflict scenarios.
func seedFlights(t *testing.T, db *sql.DB) {
	t.Helper()
	rows := [][]any{
		{1, 14, "AA", "100", "Seattle WA", "Boston MA", 300, 10, 100, 0},
		{2, 14, "AA", "101", "Seattle WA", "Boston MA", 250, 1, 200, 0},
		{3, 14, "UA", "200", "Seattle WA", "Chicago IL", 100, 10, 50, 0},
		{4, 14, "UA", "201", "Chicago IL", "Boston MA", 80, 10, 60, 0},
		{5, 14, "DL", "300", "Seattle WA", "Boston MA", 150, 10, 9999, 1},
		{6, 14, "AS", "400", "Seattle WA", "Denver CO", 120, 10, 70, 0},
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO flights
			(fid, day_of_month, carrier_id, flight_num, origin_city, dest_city, actual_time, capacity, price, canceled)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r...)
		require.NoError(t, err)
	}
}

// perform executes one request against the router and returns the
// recorder. A non-empty token is sent as a Bearer credential.
func (tc *testContext) perform(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	tc.E.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// openSession opens a fresh session and returns its token.
func (tc *testContext) openSession(t *testing.T) string {
	t.Helper()
	w := tc.perform(t, http.MethodPost, "/v1/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// createAccount registers a user directly through the API.
func (tc *testContext) createAccount(t *testing.T, username, password string, balance int64) {
	t.Helper()
	w := tc.perform(t, http.MethodPost, "/v1/users", map[string]any{
		"username":        username,
		"password":        password,
		"initial_balance": balance,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

// loginAs opens a session and logs the given user in on it, returning
// the session token.
func (tc *testContext) loginAs(t *testing.T, username, password string) string {
	t.Helper()
	token := tc.openSession(t)
	w := tc.perform(t, http.MethodPost, "/v1/login", map[string]string{
		"username": username,
		"password": password,
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return token
}

// searchRoute runs a search on the session so later bookings can name
// ordinals from it.
func (tc *testContext) searchRoute(t *testing.T, token, origin, dest string, day, max int) *httptest.ResponseRecorder {
	t.Helper()
	target := fmt.Sprintf("/v1/flights/search?origin=%s&dest=%s&day=%d&max=%d",
		url.QueryEscape(origin), url.QueryEscape(dest), day, max)
	return tc.perform(t, http.MethodGet, target, nil, token)
}
