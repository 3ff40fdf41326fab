package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)

	require.Equal(t, 0.02, cfg.Stop.InitialAF)
	require.Equal(t, 0.02, cfg.Stop.AFIncrement)
	require.Equal(t, 0.2, cfg.Stop.MaxAF)
	require.Equal(t, time.Minute, cfg.Stop.CheckInterval)
	require.Equal(t, 0.001, cfg.Stop.SLUpdateThresholdPercent)
	require.True(t, cfg.Stop.Enabled)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.yaml")
	content := []byte(`
stop:
  initial_af: 0.01
  af_increment: 0.01
  max_af: 0.1
  check_interval: 30s
  sl_update_threshold_percent: 0.005
  enabled: false
telegram:
  enabled: true
  token: dummy
  users: [42]
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 0.01, cfg.Stop.InitialAF)
	require.Equal(t, 0.1, cfg.Stop.MaxAF)
	require.Equal(t, 30*time.Second, cfg.Stop.CheckInterval)
	require.Equal(t, 0.005, cfg.Stop.SLUpdateThresholdPercent)
	require.False(t, cfg.Stop.Enabled)
	require.True(t, cfg.Telegram.Enabled)
	require.Equal(t, []int{42}, cfg.Telegram.Users)
}

func TestLoad_RejectsBadAF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.yaml")
	content := []byte(`
stop:
  initial_af: 0.3
  max_af: 0.2
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
