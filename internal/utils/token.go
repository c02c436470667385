package utils // package utils provides helpers for session token creation

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is a signed HS256 JWT identifying one client session. The
// sid claim is a random identifier; all mutable session state lives in
// the in-process session store, the token merely names it tamper-proof.
type SessionToken struct {
	Token string    // the serialized JWT string
	SID   string    // the random session id embedded in the token
	Exp   time.Time // UTC expiration time
}

// ErrInvalidSessionToken is returned when a presented token cannot be
// verified or carries no usable sid claim.
var ErrInvalidSessionToken = errors.New("invalid session token")

// NewSessionToken mints a session token with a fresh random sid, signed
// with the given secret and valid for ttlMin minutes.
func NewSessionToken(secret string, ttlMin int) (SessionToken, error) {
	sid, err := randomHex(16)
	if err != nil {
		return SessionToken{}, err
	}
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sid": sid,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, SID: sid, Exp: exp}, nil
}

// ParseSessionToken verifies the signature and expiry of a session token
// and returns the embedded sid.
func ParseSessionToken(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSessionToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidSessionToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSessionToken
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", ErrInvalidSessionToken
	}
	return sid, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
