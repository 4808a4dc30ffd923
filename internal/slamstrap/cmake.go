package slamstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// buildLogName is the per-target log the `log` subcommand tails.
const buildLogName = "slamstrap-build.log"

// BuildTarget is one native project to configure, build and install.
type BuildTarget struct {
	Name     string
	SrcDir   string
	BuildDir string
	Options  []string
}

func (t *BuildTarget) LogPath() string {
	return filepath.Join(t.BuildDir, buildLogName)
}

// Build runs the three sub-steps in order, each fatal on failure. Output is
// teed into the build log so it can be inspected after the fact.
func (t *BuildTarget) Build(ctx context.Context, cfg *Config, d *Diag, r Runner) error {
	if err := os.MkdirAll(t.BuildDir, 0o755); err != nil {
		return fmt.Errorf("failed to create build dir %s: %w", t.BuildDir, err)
	}

	logf, err := os.Create(t.LogPath())
	if err != nil {
		return fmt.Errorf("failed to create build log: %w", err)
	}
	defer logf.Close()

	var out io.Writer = logf
	if !cfg.Quiet {
		out = io.MultiWriter(os.Stdout, logf)
	}

	args := []string{
		"-G", cfg.Generator,
		"-DCMAKE_BUILD_TYPE=Release",
		"-DCMAKE_INSTALL_PREFIX=" + cfg.Prefix,
		"-DCMAKE_CXX_STANDARD=17",
	}
	args = append(args, t.Options...)
	args = append(args, t.SrcDir)

	configure := Command{Name: "cmake", Args: args, Dir: t.BuildDir, Stdout: out, Stderr: out}
	d.Infof("%s: configuring (%s)", t.Name, cfg.Generator)
	if err := r.Run(ctx, configure); err != nil {
		return fatalError(configure, err)
	}

	build := Command{
		Name:   "cmake",
		Args:   []string{"--build", ".", "-j", fmt.Sprint(cfg.Jobs)},
		Dir:    t.BuildDir,
		Stdout: out,
		Stderr: out,
	}
	d.Infof("%s: building with %d jobs", t.Name, cfg.Jobs)
	if err := r.Run(ctx, build); err != nil {
		return fatalError(build, err)
	}

	install := Command{
		Name:   "cmake",
		Args:   []string{"--build", ".", "--target", "install"},
		Dir:    t.BuildDir,
		AsRoot: true,
		Stdout: out,
		Stderr: out,
	}
	d.Infof("%s: installing to %s", t.Name, cfg.Prefix)
	if err := r.Run(ctx, install); err != nil {
		return fatalError(install, err)
	}

	d.Okf("%s: installed", t.Name)
	return nil
}

// g2oTarget builds a shared, viewer-less g2o with CSparse support.
func g2oTarget(cfg *Config) *BuildTarget {
	return &BuildTarget{
		Name:     "g2o",
		SrcDir:   cfg.G2ODir(),
		BuildDir: filepath.Join(cfg.G2ODir(), "build"),
		Options: []string{
			"-DBUILD_SHARED_LIBS=ON",
			"-DBUILD_UNITTESTS=OFF",
			"-DG2O_BUILD_APPS=OFF",
			"-DG2O_BUILD_EXAMPLES=OFF",
			"-DG2O_USE_CHOLMOD=OFF",
			"-DG2O_USE_CSPARSE=ON",
			"-DG2O_USE_OPENGL=OFF",
			"-DG2O_USE_OPENMP=ON",
		},
	}
}

// openVSLAMTarget carries the user's tri-state toggles plus the resolved
// CSparse include path into the second configure step.
func openVSLAMTarget(cfg *Config) *BuildTarget {
	return &BuildTarget{
		Name:     "openvslam",
		SrcDir:   cfg.OpenVSLAMDir(),
		BuildDir: filepath.Join(cfg.OpenVSLAMDir(), "build"),
		Options: []string{
			"-DUSE_PANGOLIN_VIEWER=" + cfg.UsePangolin,
			"-DBUILD_EXAMPLES=" + cfg.BuildExamples,
			"-DBUILD_TESTS=" + cfg.BuildTests,
			"-DUSE_STACK_TRACE_LOGGER=ON",
			"-DCMAKE_CXX_FLAGS=-I" + cfg.CSparseInclude(),
		},
	}
}

// resolveCSparse locates the CSparse header the second target's optimizer
// backend needs: the distro package first, then the copy vendored inside the
// g2o checkout. If neither exists the run aborts before the second configure
// is attempted. The result is stored on the Config and never recomputed.
func resolveCSparse(cfg *Config, d *Diag) (string, error) {
	if inc := cfg.CSparseInclude(); inc != "" {
		return inc, nil
	}

	if _, err := os.Stat(cfg.CSparseHeader); err == nil {
		dir := filepath.Dir(cfg.CSparseHeader)
		d.Infof("using system CSparse headers in %s", dir)
		cfg.setCSparseInclude(dir)
		return dir, nil
	}

	vendored := filepath.Join(cfg.G2ODir(), "EXTERNAL", "csparse")
	if _, err := os.Stat(filepath.Join(vendored, "cs.h")); err == nil {
		d.Warnf("system CSparse headers missing, falling back to the copy vendored in g2o")
		cfg.setCSparseInclude(vendored)
		return vendored, nil
	}

	return "", missingErrorf("cs.h not found at %s or %s; install libsuitesparse-dev", cfg.CSparseHeader, vendored)
}
