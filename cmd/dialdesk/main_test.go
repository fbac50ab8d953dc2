package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialdesk/internal/auth"
	"dialdesk/internal/commands"
	"dialdesk/internal/config"
	"dialdesk/internal/localstate"
	"dialdesk/internal/service"
	"dialdesk/internal/testutil"
)

func unauthorizedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"token revoked"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func loggedInEnv(t *testing.T, apiURL, envToken string) (*commands.Env, localstate.Store) {
	t.Helper()
	store := localstate.NewMemory()
	require.NoError(t, auth.NewSession(store).Save(context.Background(), testutil.SignedToken(t, time.Now().Add(time.Hour))))
	env := &commands.Env{
		Config: &config.Config{Dir: t.TempDir(), APIURL: apiURL, Token: envToken, APITimeout: 5 * time.Second},
		State:  store,
	}
	return env.Normalize(), store
}

func TestNewService_UnauthorizedDropsStoredToken(t *testing.T) {
	srv := unauthorizedServer(t)
	env, store := loggedInEnv(t, srv.URL, "")

	svc, err := newService(context.Background(), env)
	require.NoError(t, err)

	_, err = svc.GetTask(context.Background(), "t-1")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, ok, err := store.Get(context.Background(), localstate.KeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok, "stored token must be dropped")
}

func TestNewService_UnauthorizedKeepsStoredTokenWhenEnvTokenUsed(t *testing.T) {
	srv := unauthorizedServer(t)
	env, store := loggedInEnv(t, srv.URL, "env-token")

	svc, err := newService(context.Background(), env)
	require.NoError(t, err)

	_, err = svc.GetTask(context.Background(), "t-1")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, ok, err := store.Get(context.Background(), localstate.KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok, "a stored token that was never sent stays")
}

func TestNewService_NotLoggedIn(t *testing.T) {
	env := (&commands.Env{Config: &config.Config{Dir: t.TempDir(), APIURL: "http://localhost"}}).Normalize()

	_, err := newService(context.Background(), env)
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
}
