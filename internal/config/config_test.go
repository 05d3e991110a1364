package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"45s", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"", 30 * time.Second},
		{"bogus", 30 * time.Second},
		{"-5s", 30 * time.Second},
	}
	for _, tt := range tests {
		s := Settings{Timeout: tt.raw}
		assert.Equal(t, tt.want, s.RequestTimeout(), "timeout %q", tt.raw)
	}
}

func TestResolveDBPath_Configured(t *testing.T) {
	t.Parallel()

	want := filepath.Join("/tmp", "davsync", "state.db")
	s := Settings{DBPath: want}
	assert.Equal(t, want, s.ResolveDBPath())
}

func TestResolveDBPath_DefaultEndsInStateDB(t *testing.T) {
	t.Parallel()

	var s Settings
	got := s.ResolveDBPath()
	assert.Equal(t, "state.db", filepath.Base(got))
	assert.True(t, filepath.IsAbs(got))
}
