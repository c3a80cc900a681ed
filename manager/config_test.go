package manager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 5*time.Second, cfg.ScanPeriod)
	require.Equal(t, 500*time.Millisecond, cfg.ScannerTick)
	require.Equal(t, time.Second, cfg.DiscoveryRetryInterval)
	require.Equal(t, time.Second, cfg.SignalWait)
	require.Equal(t, 10, cfg.SignalQueueSize)
	require.Equal(t, 10*time.Second, cfg.CallTimeout)
	require.Equal(t, 2*time.Second, cfg.StopJoinTimeout)
	require.False(t, cfg.DeduplicateAddresses)
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("overrides merge over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bluectl.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"scan_period: 10s\nlog_level: debug\ndeduplicate_addresses: true\n",
		), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		require.Equal(t, 10*time.Second, cfg.ScanPeriod)
		require.Equal(t, "debug", cfg.LogLevel)
		require.True(t, cfg.DeduplicateAddresses)
		// Untouched fields keep their defaults.
		require.Equal(t, 500*time.Millisecond, cfg.ScannerTick)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scan_period: [oops"), 0o644))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	require.Equal(t, logrus.WarnLevel, logger.GetLevel())

	cfg.LogLevel = "shout"
	_, err = cfg.NewLogger()
	require.Error(t, err)
}
