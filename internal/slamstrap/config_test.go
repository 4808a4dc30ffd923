package slamstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slamstrap.conf")
	content := `# comment
PREFIX=/opt/slam
SRC_DIR="/data/src"
G2O_COMMIT='deadbeef'
JOBS=6
not a key value line
UNKNOWN_KEY=ignored
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := defaultConfig()
	require.NoError(t, loadConfigFile(cfg, path))
	require.Equal(t, "/opt/slam", cfg.Prefix)
	require.Equal(t, "/data/src", cfg.SrcDir)
	require.Equal(t, "deadbeef", cfg.G2O.Commit)
	require.Equal(t, 6, cfg.Jobs)
}

func TestLoadConfigFileMissingIsFine(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, loadConfigFile(cfg, filepath.Join(t.TempDir(), "nope.conf")))
}

func TestMergeEnvOverrides(t *testing.T) {
	t.Setenv("SLAMSTRAP_PREFIX", "/env/prefix")
	t.Setenv("SLAMSTRAP_MIRROR_BUCKET", "snapshots")
	t.Setenv("SLAMSTRAP_JOBS", "3")

	cfg := defaultConfig()
	mergeEnvOverrides(cfg)
	require.Equal(t, "/env/prefix", cfg.Prefix)
	require.Equal(t, "snapshots", cfg.MirrorBucket)
	require.Equal(t, 3, cfg.Jobs)
}

func TestFlagsWinOverEnv(t *testing.T) {
	t.Setenv("SLAMSTRAP_PREFIX", "/env/prefix")

	cfg := defaultConfig()
	mergeEnvOverrides(cfg)
	_, err := parseArgs(cfg, []string{"--prefix", "/flag/prefix"})
	require.NoError(t, err)
	require.Equal(t, "/flag/prefix", cfg.Prefix)
}

func TestBadJobsInConfigIgnored(t *testing.T) {
	cfg := defaultConfig()
	want := cfg.Jobs
	applyConfigValue(cfg, "JOBS", "zero")
	applyConfigValue(cfg, "JOBS", "-1")
	require.Equal(t, want, cfg.Jobs)
}

func TestFinalizeGeneratorChoice(t *testing.T) {
	cfg := defaultConfig()
	cfg.Finalize(&fakeRunner{paths: map[string]string{"ninja": "/usr/bin/ninja"}}, 0)
	require.Equal(t, "Ninja", cfg.Generator)

	cfg = defaultConfig()
	cfg.Finalize(&fakeRunner{}, 0)
	require.Equal(t, "Unix Makefiles", cfg.Generator)
}

func TestFinalizeRunsOnce(t *testing.T) {
	cfg := defaultConfig()
	cfg.Finalize(&fakeRunner{paths: map[string]string{"ninja": "/usr/bin/ninja", "sudo": "/usr/bin/sudo"}}, 1000)
	require.Equal(t, "Ninja", cfg.Generator)
	require.Equal(t, "/usr/bin/sudo", cfg.Sudo)

	// Derived fields never change mid-run, even if tool availability does.
	cfg.Finalize(&fakeRunner{}, 1000)
	require.Equal(t, "Ninja", cfg.Generator)
	require.Equal(t, "/usr/bin/sudo", cfg.Sudo)
}

func TestFinalizeAsRootSkipsSudo(t *testing.T) {
	cfg := defaultConfig()
	cfg.Finalize(&fakeRunner{paths: map[string]string{"sudo": "/usr/bin/sudo"}}, 0)
	require.Empty(t, cfg.Sudo)
}
