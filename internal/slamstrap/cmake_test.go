package slamstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCSparseSystemHeader(t *testing.T) {
	cfg := defaultConfig()
	cfg.SrcDir = t.TempDir()
	sysDir := filepath.Join(t.TempDir(), "suitesparse")
	require.NoError(t, os.MkdirAll(sysDir, 0o755))
	cfg.CSparseHeader = filepath.Join(sysDir, "cs.h")
	require.NoError(t, os.WriteFile(cfg.CSparseHeader, []byte("// cs\n"), 0o644))
	d, _ := testDiag()

	dir, err := resolveCSparse(cfg, d)
	require.NoError(t, err)
	require.Equal(t, sysDir, dir)
}

func TestResolveCSparseVendoredFallback(t *testing.T) {
	cfg := defaultConfig()
	cfg.SrcDir = t.TempDir()
	cfg.CSparseHeader = filepath.Join(t.TempDir(), "missing", "cs.h")
	vendored := filepath.Join(cfg.G2ODir(), "EXTERNAL", "csparse")
	require.NoError(t, os.MkdirAll(vendored, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vendored, "cs.h"), []byte("// cs\n"), 0o644))
	d, buf := testDiag()

	dir, err := resolveCSparse(cfg, d)
	require.NoError(t, err)
	require.Equal(t, vendored, dir)
	require.Contains(t, buf.String(), "falling back")
}

func TestResolveCSparseBothAbsentIsFatal(t *testing.T) {
	cfg := defaultConfig()
	cfg.SrcDir = t.TempDir()
	cfg.CSparseHeader = filepath.Join(t.TempDir(), "missing", "cs.h")
	d, _ := testDiag()

	_, err := resolveCSparse(cfg, d)
	require.Error(t, err)
	require.Equal(t, 1, exitCodeFor(err))
}

func TestResolveCSparseComputedOnce(t *testing.T) {
	cfg := defaultConfig()
	cfg.SrcDir = t.TempDir()
	sysDir := filepath.Join(t.TempDir(), "suitesparse")
	require.NoError(t, os.MkdirAll(sysDir, 0o755))
	cfg.CSparseHeader = filepath.Join(sysDir, "cs.h")
	require.NoError(t, os.WriteFile(cfg.CSparseHeader, []byte("// cs\n"), 0o644))
	d, _ := testDiag()

	first, err := resolveCSparse(cfg, d)
	require.NoError(t, err)

	// Even if the header disappears mid-run the resolved path stays fixed.
	require.NoError(t, os.Remove(cfg.CSparseHeader))
	second, err := resolveCSparse(cfg, d)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBuildTargetRunsThreeSteps(t *testing.T) {
	cfg := defaultConfig()
	cfg.SrcDir = t.TempDir()
	cfg.Prefix = "/opt/slam"
	cfg.Jobs = 4
	cfg.Generator = "Unix Makefiles"
	cfg.Quiet = true
	d, _ := testDiag()
	r := &fakeRunner{}

	target := g2oTarget(cfg)
	require.NoError(t, target.Build(context.Background(), cfg, d, r))
	require.Len(t, r.cmds, 3)

	configure := r.cmds[0]
	require.Equal(t, "cmake", configure.Name)
	require.Contains(t, configure.Args, "Unix Makefiles")
	require.Contains(t, configure.Args, "-DCMAKE_BUILD_TYPE=Release")
	require.Contains(t, configure.Args, "-DCMAKE_INSTALL_PREFIX=/opt/slam")
	require.Contains(t, configure.Args, "-DBUILD_SHARED_LIBS=ON")
	require.False(t, configure.AsRoot)

	build := r.cmds[1]
	require.Equal(t, []string{"--build", ".", "-j", "4"}, build.Args)
	require.False(t, build.AsRoot)

	install := r.cmds[2]
	require.Equal(t, []string{"--build", ".", "--target", "install"}, install.Args)
	require.True(t, install.AsRoot)

	// The build log must exist for the log viewer.
	_, err := os.Stat(target.LogPath())
	require.NoError(t, err)
}

func TestBuildTargetConfigureFailureIsFatal(t *testing.T) {
	cfg := defaultConfig()
	cfg.SrcDir = t.TempDir()
	cfg.Generator = "Ninja"
	cfg.Quiet = true
	d, _ := testDiag()
	r := &fakeRunner{fail: func(c Command) error { return os.ErrInvalid }}

	err := g2oTarget(cfg).Build(context.Background(), cfg, d, r)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cmake")
	require.Len(t, r.cmds, 1)
}

func TestOpenVSLAMTargetCarriesToggles(t *testing.T) {
	cfg := defaultConfig()
	cfg.SrcDir = t.TempDir()
	cfg.UsePangolin = "ON"
	cfg.BuildTests = "maybe" // pass-through token reaches cmake untouched
	cfg.setCSparseInclude("/usr/include/suitesparse")

	opts := strings.Join(openVSLAMTarget(cfg).Options, " ")
	require.Contains(t, opts, "-DUSE_PANGOLIN_VIEWER=ON")
	require.Contains(t, opts, "-DBUILD_TESTS=maybe")
	require.Contains(t, opts, "-DCMAKE_CXX_FLAGS=-I/usr/include/suitesparse")
}
