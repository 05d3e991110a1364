package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSyncPair_Defaults(t *testing.T) {
	t.Parallel()

	p := NewSyncPair("docs", "/home/u/docs", "https://dav.example.com/base")
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.Enabled)
	assert.True(t, p.SyncOnSave)
	assert.False(t, p.SyncOnDelete)
	assert.False(t, p.SyncHidden)
	assert.Equal(t, 500*time.Millisecond, p.Debounce)
	assert.Equal(t, StatusIdle, p.Status)

	other := NewSyncPair("docs", "/home/u/docs", "https://dav.example.com/base")
	assert.NotEqual(t, p.ID, other.ID, "identity must be unique")
}

func TestPairPatch_Apply(t *testing.T) {
	t.Parallel()

	orig := NewSyncPair("docs", "/a", "https://h/base")
	orig.Exclude = []string{"**/*.log"}

	name := "renamed"
	enabled := false
	debounce := time.Second
	exclude := []string{"**/.git/**"}
	patched := PairPatch{
		Name:     &name,
		Enabled:  &enabled,
		Debounce: &debounce,
		Exclude:  &exclude,
	}.Apply(orig)

	assert.Equal(t, "renamed", patched.Name)
	assert.False(t, patched.Enabled)
	assert.Equal(t, time.Second, patched.Debounce)
	assert.Equal(t, []string{"**/.git/**"}, patched.Exclude)

	// Untouched fields carry over; the original snapshot is preserved.
	assert.Equal(t, orig.ID, patched.ID)
	assert.Equal(t, "/a", patched.LocalPath)
	assert.Equal(t, "docs", orig.Name)
	assert.Equal(t, []string{"**/*.log"}, orig.Exclude)
}

func TestSyncPair_RemoteMapping(t *testing.T) {
	t.Parallel()

	p := NewSyncPair("docs", "/repo", "https://host/base/")
	assert.Equal(t, "/base", p.RemoteBasePath())
	assert.Equal(t, "/base/src/a.ts", p.RemotePathFor("/repo/src/a.ts"))
}
