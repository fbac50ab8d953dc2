package localstate_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialdesk/internal/localstate"
)

// stores returns one instance of each Store implementation.
func stores(t *testing.T) map[string]localstate.Store {
	t.Helper()
	db, err := localstate.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]localstate.Store{
		"memory": localstate.NewMemory(),
		"sqlite": db,
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := st.Get(ctx, localstate.KeyAuthToken)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.Set(ctx, localstate.KeyAuthToken, "tok-1"))
			require.NoError(t, st.Set(ctx, localstate.KeyAuthToken, "tok-2"))

			v, ok, err := st.Get(ctx, localstate.KeyAuthToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "tok-2", v)

			require.NoError(t, st.Delete(ctx, localstate.KeyAuthToken))
			require.NoError(t, st.Delete(ctx, localstate.KeyAuthToken))
			_, ok, err = st.Get(ctx, localstate.KeyAuthToken)
			require.NoError(t, err)
			assert.False(t, ok)

			assert.ErrorIs(t, st.Set(ctx, "", "x"), localstate.ErrEmptyKey)
		})
	}
}

func TestStore_MigrateLegacyOnly(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, st.Set(ctx, localstate.KeyLegacyChatSession, "sess-legacy"))

			v, ok, err := st.Migrate(ctx, localstate.KeyLegacyChatSession, localstate.KeyChatSession)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "sess-legacy", v)

			got, ok, err := st.Get(ctx, localstate.KeyChatSession)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "sess-legacy", got)

			_, ok, err = st.Get(ctx, localstate.KeyLegacyChatSession)
			require.NoError(t, err)
			assert.False(t, ok, "legacy key must be removed")

			// Second run is a no-op.
			v, ok, err = st.Migrate(ctx, localstate.KeyLegacyChatSession, localstate.KeyChatSession)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "sess-legacy", v)
		})
	}
}

func TestStore_MigrateNewKeyWins(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, st.Set(ctx, localstate.KeyLegacyChatSession, "old"))
			require.NoError(t, st.Set(ctx, localstate.KeyChatSession, "new"))

			v, ok, err := st.Migrate(ctx, localstate.KeyLegacyChatSession, localstate.KeyChatSession)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "new", v)

			_, ok, err = st.Get(ctx, localstate.KeyLegacyChatSession)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_MigrateNothing(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := st.Migrate(context.Background(), localstate.KeyLegacyChatSession, localstate.KeyChatSession)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, v)
		})
	}
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := localstate.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, localstate.KeyChatSession, "sess-1"))
	require.NoError(t, db.Close())

	db, err = localstate.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	v, ok, err := db.Get(ctx, localstate.KeyChatSession)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sess-1", v)
}
