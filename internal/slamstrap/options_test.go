package slamstrap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTri(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"on", "ON"},
		{"true", "ON"},
		{"yes", "ON"},
		{"1", "ON"},
		{"ON", "ON"},
		{"off", "OFF"},
		{"false", "OFF"},
		{"no", "OFF"},
		{"0", "OFF"},
		{"OFF", "OFF"},
		// Unrecognized tokens pass through verbatim for cmake to judge.
		{"maybe", "maybe"},
		{"$<CONFIG:Release>", "$<CONFIG:Release>"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, normalizeTri(c.in), "normalizeTri(%q)", c.in)
	}
}

func TestParseArgsTriStateForms(t *testing.T) {
	cfg := defaultConfig()
	help, err := parseArgs(cfg, []string{"--build-examples"})
	require.NoError(t, err)
	require.False(t, help)
	require.Equal(t, "ON", cfg.BuildExamples)

	cfg = defaultConfig()
	_, err = parseArgs(cfg, []string{"--build-tests=yes", "--use-pangolin", "off"})
	require.NoError(t, err)
	require.Equal(t, "ON", cfg.BuildTests)
	require.Equal(t, "OFF", cfg.UsePangolin)

	// A bare tri-state flag followed by another option must not eat it.
	cfg = defaultConfig()
	_, err = parseArgs(cfg, []string{"--use-pangolin", "--quiet"})
	require.NoError(t, err)
	require.Equal(t, "ON", cfg.UsePangolin)
	require.True(t, cfg.Quiet)
}

func TestParseArgsValues(t *testing.T) {
	cfg := defaultConfig()
	_, err := parseArgs(cfg, []string{
		"--prefix", "/opt/slam",
		"--src-dir=/data/src",
		"--g2o-repo", "https://example.com/g2o.git",
		"--g2o-commit", "abc123",
		"--openvslam-commit=",
		"--jobs", "8",
		"--skip-apt",
		"--no-color",
		"--offline",
	})
	require.NoError(t, err)
	require.Equal(t, "/opt/slam", cfg.Prefix)
	require.Equal(t, "/data/src", cfg.SrcDir)
	require.Equal(t, "https://example.com/g2o.git", cfg.G2O.URL)
	require.Equal(t, "abc123", cfg.G2O.Commit)
	require.Empty(t, cfg.OpenVSLAM.Commit)
	require.Equal(t, 8, cfg.Jobs)
	require.True(t, cfg.SkipApt)
	require.True(t, cfg.NoColor)
	require.True(t, cfg.Offline)
}

func TestParseArgsBadJobs(t *testing.T) {
	for _, v := range []string{"0", "-2", "many"} {
		cfg := defaultConfig()
		_, err := parseArgs(cfg, []string{"--jobs", v})
		require.Error(t, err, "jobs=%q", v)
		require.Equal(t, 2, exitCodeFor(err))
	}
}

func TestParseArgsUnknownFlag(t *testing.T) {
	cfg := defaultConfig()
	_, err := parseArgs(cfg, []string{"--frobnicate"})
	require.Error(t, err)
	require.Equal(t, 2, exitCodeFor(err))
	require.Contains(t, err.Error(), "--help")
}

func TestParseArgsMissingValue(t *testing.T) {
	cfg := defaultConfig()
	_, err := parseArgs(cfg, []string{"--prefix"})
	require.Error(t, err)
	require.Equal(t, 2, exitCodeFor(err))
}

func TestParseArgsHelp(t *testing.T) {
	cfg := defaultConfig()
	help, err := parseArgs(cfg, []string{"--help"})
	require.NoError(t, err)
	require.True(t, help)

	help, err = parseArgs(cfg, []string{"-h"})
	require.NoError(t, err)
	require.True(t, help)
}
