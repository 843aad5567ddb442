package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stores returns every implementation under test.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "credentials.json")),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess := Session{
				Slug:      "table7",
				Token:     "sess_abc",
				Channel:   ChannelDineIn,
				ExpiresAt: time.Now().Add(2 * time.Hour).Truncate(time.Second),
			}
			require.NoError(t, store.SetSession("table7", sess))

			got, err := store.GetSession("table7")
			require.NoError(t, err)
			assert.Equal(t, sess.Token, got.Token)
			assert.Equal(t, ChannelDineIn, got.Channel)
			assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

			require.NoError(t, store.RemoveSession("table7"))
			_, err = store.GetSession("table7")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSessionOverwrite(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetSession("s", Session{Slug: "s", Token: "first", Channel: ChannelDineIn}))
			require.NoError(t, store.SetSession("s", Session{Slug: "s", Token: "second", Channel: ChannelTakeout}))

			got, err := store.GetSession("s")
			require.NoError(t, err)
			assert.Equal(t, "second", got.Token)
			assert.Equal(t, ChannelTakeout, got.Channel)
		})
	}
}

func TestRemoveSessionIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, store.RemoveSession("never-existed"))
			assert.NoError(t, store.RemoveSession("never-existed"))
		})
	}
}

func TestAdminCredentialSlot(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetAdminCredential()
			assert.ErrorIs(t, err, ErrNotFound)

			cred := AdminCredential{Token: "jwt-token", LoginAt: time.Now().Truncate(time.Second)}
			require.NoError(t, store.SetAdminCredential(cred))

			got, err := store.GetAdminCredential()
			require.NoError(t, err)
			assert.Equal(t, "jwt-token", got.Token)

			require.NoError(t, store.ClearAdminCredential())
			require.NoError(t, store.ClearAdminCredential())
			_, err = store.GetAdminCredential()
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	first := NewFileStore(path)
	require.NoError(t, first.SetSession("table7", Session{Slug: "table7", Token: "tok", Channel: ChannelDineIn}))

	second := NewFileStore(path)
	got, err := second.GetSession("table7")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
}

func TestFileStoreToleratesClearedStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStore(path)
	require.NoError(t, store.SetSession("s", Session{Slug: "s", Token: "tok"}))

	// Storage wiped externally: reads report no session, never an error.
	require.NoError(t, os.Remove(path))
	_, err := store.GetSession("s")
	assert.ErrorIs(t, err, ErrNotFound)

	// Corrupt storage behaves the same.
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = store.GetSession("s")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreLegacyAdminToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"accesstoken":"legacy-jwt"}`), 0o600))

	store := NewFileStore(path)
	got, err := store.GetAdminCredential()
	require.NoError(t, err)
	assert.Equal(t, "legacy-jwt", got.Token)

	// Clearing removes the legacy key as well.
	require.NoError(t, store.ClearAdminCredential())
	_, err = store.GetAdminCredential()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	open := Session{ExpiresAt: now.Add(time.Minute)}
	stale := Session{ExpiresAt: now.Add(-time.Minute)}
	unbounded := Session{}

	assert.False(t, open.Expired(now))
	assert.True(t, stale.Expired(now))
	assert.False(t, unbounded.Expired(now))
}
