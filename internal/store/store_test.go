package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarvela/davsync/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "data", "davsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	p := core.NewSyncPair("docs", "/home/u/docs", "https://dav.example.com/backups")
	p.SyncOnDelete = true
	p.Exclude = []string{"**/*.log", "**/.git/**"}
	p.Username = "alice"
	p.Debounce = 750 * time.Millisecond
	require.NoError(t, s.Save(p))

	pairs, err := s.Load()
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	got := pairs[0]
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "docs", got.Name)
	assert.Equal(t, "/home/u/docs", got.LocalPath)
	assert.Equal(t, "https://dav.example.com/backups", got.RemoteURL)
	assert.True(t, got.Enabled)
	assert.True(t, got.SyncOnSave)
	assert.True(t, got.SyncOnDelete)
	assert.False(t, got.SyncHidden)
	assert.Equal(t, 750*time.Millisecond, got.Debounce)
	assert.Equal(t, []string{"**/*.log", "**/.git/**"}, got.Exclude)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, core.StatusIdle, got.Status)
	assert.True(t, got.LastSync.IsZero())
}

func TestStore_SaveIsUpsert(t *testing.T) {
	s := openTestStore(t)

	p := core.NewSyncPair("docs", "/a", "https://h/x")
	require.NoError(t, s.Save(p))

	p.Name = "renamed"
	p.Enabled = false
	require.NoError(t, s.Save(p))

	pairs, err := s.Load()
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "renamed", pairs[0].Name)
	assert.False(t, pairs[0].Enabled)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)

	p := core.NewSyncPair("docs", "/a", "https://h/x")
	require.NoError(t, s.Save(p))
	require.NoError(t, s.Delete(p.ID))
	require.NoError(t, s.Delete("unknown"))

	pairs, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestStore_UpdateAndResetRuntime(t *testing.T) {
	s := openTestStore(t)

	p := core.NewSyncPair("docs", "/a", "https://h/x")
	require.NoError(t, s.Save(p))

	at := time.Now()
	require.NoError(t, s.UpdateRuntime(p.ID, core.StatusError, at, "boom"))

	pairs, err := s.Load()
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, core.StatusError, pairs[0].Status)
	assert.Equal(t, "boom", pairs[0].LastError)
	assert.Equal(t, at.UnixNano(), pairs[0].LastSync.UnixNano())

	// A declarative save must not clobber the recorded runtime outcome.
	require.NoError(t, s.Save(pairs[0]))
	pairs, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, pairs[0].Status)

	require.NoError(t, s.ResetRuntime(""))
	pairs, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, pairs[0].Status)
	assert.Empty(t, pairs[0].LastError)
	assert.True(t, pairs[0].LastSync.IsZero())
}
