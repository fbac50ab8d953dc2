// Package auth keeps the bearer token used for every backend call.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dialdesk/internal/localstate"
)

var (
	// ErrNotLoggedIn is returned when no token is stored.
	ErrNotLoggedIn = errors.New("not logged in (run: dialdesk login)")

	// ErrExpired is returned when the stored token is past its exp claim.
	ErrExpired = errors.New("session expired (run: dialdesk login)")

	// ErrEmptyToken is returned when saving a blank token.
	ErrEmptyToken = errors.New("token required")
)

// Session reads and writes the auth token in local state.
type Session struct {
	store localstate.Store
	now   func() time.Time
}

// NewSession creates a Session over the given store.
func NewSession(store localstate.Store) *Session {
	return &Session{store: store, now: time.Now}
}

// SetClock overrides the clock (for testing).
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// Token returns the stored token, failing if it is missing or expired.
func (s *Session) Token(ctx context.Context) (string, error) {
	tok, ok, err := s.store.Get(ctx, localstate.KeyAuthToken)
	if err != nil {
		return "", err
	}
	if !ok || tok == "" {
		return "", ErrNotLoggedIn
	}
	if Expired(tok, s.now()) {
		return "", ErrExpired
	}
	return tok, nil
}

// Save stores a new token. Tokens that are already expired are refused.
func (s *Session) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return ErrEmptyToken
	}
	if Expired(token, s.now()) {
		return ErrExpired
	}
	return s.store.Set(ctx, localstate.KeyAuthToken, token)
}

// Invalidate drops the stored token. It is safe to call repeatedly.
func (s *Session) Invalidate(ctx context.Context) error {
	return s.store.Delete(ctx, localstate.KeyAuthToken)
}

// LoggedIn reports whether a token is stored, regardless of expiry.
func (s *Session) LoggedIn(ctx context.Context) bool {
	tok, ok, err := s.store.Get(ctx, localstate.KeyAuthToken)
	return err == nil && ok && tok != ""
}

// Expired reports whether token is a JWT whose exp claim is not after now.
// The signature is not verified; the backend does that. Opaque tokens and
// tokens without exp never expire client-side.
func Expired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
