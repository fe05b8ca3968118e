package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quicft/internal/xerr"
)

func TestDefaultSenderConfigMatchesBaseline(t *testing.T) {
	cfg := DefaultSenderConfig()
	require.Equal(t, 100*time.Millisecond, cfg.TimeThreshold)
	require.Equal(t, 10, cfg.ReorderingThreshold)
	require.Equal(t, 50*time.Millisecond, cfg.PTOTimeout)
	require.Equal(t, 5*time.Millisecond, cfg.HandshakeTimeout)
	require.Equal(t, 2048, cfg.MaxPacketBytes)
}

func TestDefaultReceiverConfigMatchesBaseline(t *testing.T) {
	cfg := DefaultReceiverConfig()
	require.Equal(t, 20*time.Millisecond, cfg.AckDelay)
	require.Equal(t, 10*time.Second, cfg.IdleTimeout)
	require.Equal(t, 10*time.Millisecond, cfg.RetransmitWait)
}

func TestLoadSenderConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sender.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reordering_threshold: 3\ntime_threshold_ms: 250\n"), 0o644))

	cfg, err := LoadSenderConfig(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.ReorderingThreshold)
	require.Equal(t, 250*time.Millisecond, cfg.TimeThreshold)
	// Untouched fields keep their defaults.
	require.Equal(t, 50*time.Millisecond, cfg.PTOTimeout)
}

func TestLoadSenderConfigMissingPathIsNotError(t *testing.T) {
	cfg, err := LoadSenderConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultSenderConfig(), cfg)
}

func TestLoadSenderConfigUnreadablePathErrors(t *testing.T) {
	_, err := LoadSenderConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateSenderRejectsNoRecoveryAlgorithm(t *testing.T) {
	cfg := DefaultSenderConfig()
	cfg.TimeThreshold = 0
	cfg.ReorderingThreshold = 0
	require.ErrorIs(t, ValidateSender(cfg), xerr.ErrNoRecoveryAlgorithm)
}

func TestValidateSenderAcceptsOneActiveDetector(t *testing.T) {
	cfg := DefaultSenderConfig()
	cfg.TimeThreshold = 0
	require.NoError(t, ValidateSender(cfg))
}
