package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATA_FILE", "SHIFT_UTC_OFFSET_HOURS", "MONGODB_URI", "ATTENDANCE_BOT_TOKEN", "ATTENDANCE_CHANNEL_ID"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "attendance.csv", cfg.DataFile)
	assert.Equal(t, 2, cfg.UTCOffsetHours)
	assert.False(t, cfg.MirrorEnabled())
	assert.False(t, cfg.NotifyEnabled())
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("PORT", "9090")
	// unset, so the file can provide them; t.Setenv restores the originals
	for _, k := range []string{"ADMIN_SECRET", "MATTERMOST_URL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=1111\nADMIN_SECRET=abc\nMATTERMOST_URL=http://mm.local/\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port, "the environment wins over the file")
	assert.Equal(t, "abc", cfg.AdminSecret)
	assert.Equal(t, "http://mm.local", cfg.MattermostURL)
}

func TestLoadRejectsBadOffset(t *testing.T) {
	t.Setenv("SHIFT_UTC_OFFSET_HOURS", "two")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
