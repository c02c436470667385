package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-reservation/internal/config"
	"github.com/iliyamo/flight-reservation/internal/middleware"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/session"
	"github.com/iliyamo/flight-reservation/internal/utils"
)

// AuthHandler bundles dependencies for session and account endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *session.Store
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, sessions *session.Store) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Sessions: sessions}
}

// ----- DTOs -----

type createAccountReq struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	InitialBalance int64  `json:"initial_balance"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// OpenSession creates a fresh, not-yet-authenticated session and returns
// its signed token. One session corresponds to one connected client; all
// later calls present the token as a Bearer credential.
func (h *AuthHandler) OpenSession(c echo.Context) error {
	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, h.Cfg.SessionTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	h.Sessions.Create(tok.SID)
	return c.JSON(http.StatusCreated, sessionResp{Token: tok.Token, Expires: tok.Exp})
}

// CloseSession destroys the calling session along with its login state
// and cached search results.
func (h *AuthHandler) CloseSession(c echo.Context) error {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	h.Sessions.Delete(sess.ID)
	return c.NoContent(http.StatusNoContent)
}

// CreateAccount creates a user with a starting balance. The username is
// stored lowercase; concurrent signups with the same name resolve to a
// single winner inside the repository transaction.
func (h *AuthHandler) CreateAccount(c echo.Context) error {
	var req createAccountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	if req.InitialBalance < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid initial balance"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Users.Create(ctx, req.Username, req.Password, req.InitialBalance, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrUsernameExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
	case errors.Is(err, repository.ErrTxConflict):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"username": strings.ToLower(req.Username),
		"balance":  req.InitialBalance,
	})
}

// Login authenticates the session's user. A session carries at most one
// login for its entire lifetime; a second attempt is rejected rather
// than replacing the first.
func (h *AuthHandler) Login(c echo.Context) error {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if sess.LoggedIn {
		return c.JSON(http.StatusConflict, echo.Map{"error": "already logged in"})
	}

	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	sess.LoggedIn = true
	sess.Username = u.Username
	return c.JSON(http.StatusOK, echo.Map{"username": u.Username})
}

// Me reports the calling session's identity, mainly for client sanity
// checks.
func (h *AuthHandler) Me(c echo.Context) error {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"logged_in": sess.LoggedIn,
		"username":  sess.Username,
	})
}
