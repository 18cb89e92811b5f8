package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"uvfs/pkg/config"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uvfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
seed:
  - path: /etc
    kind: dir
  - path: /etc/motd
    kind: file
    content: welcome
  - path: /dev/null
    kind: chardev
    device: 3
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 32, cfg.MaxFiles, "defaults survive partial configs")
	require.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Seed, 3)
	require.Equal(t, "welcome", cfg.Seed[1].Content)
	require.Equal(t, uint32(3), cfg.Seed[2].Device)
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad kind", "seed:\n  - path: /x\n    kind: socket\n"},
		{"empty path", "seed:\n  - kind: dir\n"},
		{"content on dir", "seed:\n  - path: /x\n    kind: dir\n    content: nope\n"},
		{"zero max files", "max_files: 0\n"},
		{"not yaml", ": : :\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
