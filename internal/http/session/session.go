// Package session signs and verifies the dashboard session cookie.
//
// A cookie value is "<base64 username>.<unix expiry>.<hex hmac-sha256>",
// keyed by APP_SESSION_SECRET. Nothing is stored server side.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	CookieName = "session_user"
	TTL        = 12 * time.Hour
)

var (
	ErrMalformed = errors.New("malformed session")
	ErrSignature = errors.New("bad session signature")
	ErrExpired   = errors.New("session expired")
)

// Sign returns a cookie value for username valid until expires.
func Sign(secret, username string, expires time.Time) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(username)) + "." + strconv.FormatInt(expires.Unix(), 10)
	return payload + "." + mac(secret, payload)
}

// Verify checks value against secret and now and returns the username.
func Verify(secret, value string, now time.Time) (string, error) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", ErrMalformed
	}
	payload, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(mac(secret, payload))) {
		return "", ErrSignature
	}

	user, exp, ok := strings.Cut(payload, ".")
	if !ok {
		return "", ErrMalformed
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", ErrMalformed
	}
	if !now.Before(time.Unix(unix, 0)) {
		return "", ErrExpired
	}
	name, err := base64.RawURLEncoding.DecodeString(user)
	if err != nil || len(name) == 0 {
		return "", ErrMalformed
	}
	return string(name), nil
}

func mac(secret, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
