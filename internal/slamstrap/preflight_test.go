package slamstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func markerFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "debian_version")
	require.NoError(t, os.WriteFile(path, []byte("13.0\n"), 0o644))
	return path
}

func TestPreflightUnprivilegedWithoutSudo(t *testing.T) {
	cfg := defaultConfig()
	cfg.DebianMarker = markerFile(t)
	cfg.Sudo = "" // Finalize found no helper
	d, _ := testDiag()

	err := preflight(cfg, d, 1000)
	require.Error(t, err)
	require.Equal(t, 2, exitCodeFor(err))
}

func TestPreflightNonDebianHost(t *testing.T) {
	cfg := defaultConfig()
	cfg.DebianMarker = filepath.Join(t.TempDir(), "missing")
	d, _ := testDiag()

	err := preflight(cfg, d, 0)
	require.Error(t, err)
	require.Equal(t, 1, exitCodeFor(err))
}

func TestPreflightNetworkFailureIsAdvisory(t *testing.T) {
	cfg := defaultConfig()
	cfg.DebianMarker = markerFile(t)
	cfg.SrcDir = t.TempDir()
	// A port nothing listens on: the probe fails fast and must only warn.
	cfg.ProbeAddr = "127.0.0.1:1"
	d, buf := testDiag()

	require.NoError(t, preflight(cfg, d, 0))
	require.Contains(t, buf.String(), "cannot reach")
}

func TestPreflightSudoPresent(t *testing.T) {
	cfg := defaultConfig()
	cfg.DebianMarker = markerFile(t)
	cfg.SrcDir = t.TempDir()
	cfg.ProbeAddr = "127.0.0.1:1"
	cfg.Sudo = "/usr/bin/sudo"
	d, _ := testDiag()

	require.NoError(t, preflight(cfg, d, 1000))
}
