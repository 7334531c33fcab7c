package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileSessionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := &FileSessions{Path: path}

	empty, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, Session{}, empty)

	want := Session{
		User:         User{ID: "u1", Email: "li.bai@example.com"},
		Roles:        []string{"USER"},
		AccessToken:  "a",
		RefreshToken: "r",
	}
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IFS_SESSION_FILE", "/tmp/ifs-session.json")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.BaseURL)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.Equal(t, 30*time.Second, cfg.RefreshWait)
	require.Equal(t, "/tmp/ifs-session.json", cfg.SessionFile)
}
