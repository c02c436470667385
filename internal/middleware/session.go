package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-reservation/internal/session"
	"github.com/iliyamo/flight-reservation/internal/utils"
)

// Context key under which the resolved *session.Session is stored.
const SessionKey = "session"

// SessionAuth returns an Echo middleware that validates the Bearer
// session token and injects the live session into the request context.
// Requests with a missing, invalid or expired token — or a token naming
// a session the store no longer holds — are rejected with 401. Handlers
// read the session via middleware.SessionFrom.
func SessionAuth(secret string, store *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")
			sid, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session token"})
			}
			sess, ok := store.Get(sid)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
			}
			c.Set(SessionKey, sess)
			return next(c)
		}
	}
}

// SessionFrom extracts the session placed in the context by SessionAuth.
// The second return value is false when the middleware did not run.
func SessionFrom(c echo.Context) (*session.Session, bool) {
	sess, ok := c.Get(SessionKey).(*session.Session)
	return sess, ok
}
