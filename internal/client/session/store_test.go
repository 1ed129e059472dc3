package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpenko/notesync/internal/common"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "session.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, path
}

func TestSaveGetClear(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get()
	assert.ErrorIs(t, err, common.ErrNotFound)

	want := &Session{
		UserID:       "u1",
		Email:        "a@x.com",
		AccessToken:  "access",
		RefreshToken: "refresh",
	}
	require.NoError(t, store.Save(want))

	got, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear())
	_, err = store.Get()
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Clearing twice is fine.
	assert.NoError(t, store.Clear())
}

func TestSessionSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(&Session{UserID: "u1", RefreshToken: "refresh"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get()
	require.NoError(t, err)
	assert.Equal(t, "refresh", got.RefreshToken)
}

func TestDeviceID_StableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := Open(path)
	require.NoError(t, err)

	first, err := store.DeviceID()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	again, err := store.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	afterReopen, err := reopened.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, first, afterReopen)
}

func TestDeviceID_SurvivesClear(t *testing.T) {
	store, _ := newTestStore(t)

	id, err := store.DeviceID()
	require.NoError(t, err)

	require.NoError(t, store.Save(&Session{UserID: "u1"}))
	require.NoError(t, store.Clear())

	afterClear, err := store.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, id, afterClear)
}

func TestUpdateAccessToken(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(&Session{AccessToken: "old", RefreshToken: "refresh"}))
	require.NoError(t, store.UpdateAccessToken("new"))

	got, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)

	// No session, nothing to update.
	require.NoError(t, store.Clear())
	assert.ErrorIs(t, store.UpdateAccessToken("x"), common.ErrNotFound)
}
