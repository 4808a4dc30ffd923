package slamstrap

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	defaultPrefix       = "/usr/local"
	defaultJobsFallback = 4

	defaultG2ORepo   = "https://github.com/RainerKuemmerle/g2o.git"
	defaultG2OCommit = "9b41a4ea5ade8e1250b9c1b279f3a9c098811b5a"

	defaultOpenVSLAMRepo = "https://github.com/OpenVSLAM-Community/openvslam.git"

	defaultConfigFile = "/etc/slamstrap.conf"

	// Default probe endpoint for the advisory reachability check. Both
	// upstream repositories are hosted there.
	defaultProbeAddr = "github.com:443"

	defaultDebianMarker  = "/etc/debian_version"
	defaultCSparseHeader = "/usr/include/suitesparse/cs.h"
)

// RepoSpec describes one upstream checkout. An empty Commit tracks the
// remote default branch instead of pinning.
type RepoSpec struct {
	URL    string
	Commit string
}

// Config is the single configuration record threaded through the pipeline.
// It is assembled from defaults, /etc/slamstrap.conf, SLAMSTRAP_* environment
// overrides and finally command-line flags, and is read-only once Finalize
// has computed the derived fields.
type Config struct {
	Prefix    string
	SrcDir    string
	G2O       RepoSpec
	OpenVSLAM RepoSpec
	Jobs      int

	// Tri-state configure toggles. Hold "ON", "OFF" or whatever verbatim
	// token the user supplied; unknown tokens are handed to cmake as-is.
	BuildExamples string
	BuildTests    string
	UsePangolin   string

	SkipApt bool
	Quiet   bool
	NoColor bool
	Offline bool
	Debug   bool

	// Mirror settings come from the config file or environment only.
	MirrorEndpoint  string
	MirrorBucket    string
	MirrorRegion    string
	MirrorAccessKey string
	MirrorSecret    string

	// Well-known paths, overridable in tests.
	DebianMarker  string
	CSparseHeader string
	ProbeAddr     string

	// Derived fields, computed exactly once by Finalize. Sudo is empty when
	// the process already runs as root (or when no helper exists, which
	// preflight later reports as a configuration error).
	Sudo      string
	Generator string

	// Resolved once by the header-resolution stage, never recomputed.
	csparseInc string

	finalized bool
}

func defaultConfig() *Config {
	return &Config{
		Prefix:        defaultPrefix,
		SrcDir:        defaultSrcDir(),
		G2O:           RepoSpec{URL: defaultG2ORepo, Commit: defaultG2OCommit},
		OpenVSLAM:     RepoSpec{URL: defaultOpenVSLAMRepo},
		Jobs:          detectJobs(),
		BuildExamples: "ON",
		BuildTests:    "OFF",
		UsePangolin:   "OFF",
		DebianMarker:  defaultDebianMarker,
		CSparseHeader: defaultCSparseHeader,
		ProbeAddr:     defaultProbeAddr,
	}
}

// defaultSrcDir puts all checkouts and build trees under the invoking user's
// home directory. The home lookup is the only environment contract besides
// SLAMSTRAP_* overrides.
func defaultSrcDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "slamstrap-src")
	}
	return filepath.Join(home, "src", "slamstrap")
}

func detectJobs() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return defaultJobsFallback
}

// loadConfigFile reads KEY=value lines. Missing file is not an error; the
// tool must work with defaults on a pristine host.
func loadConfigFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		applyConfigValue(cfg, key, val)
	}
	return scanner.Err()
}

// mergeEnvOverrides applies SLAMSTRAP_* variables over the file values.
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "SLAMSTRAP_") {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, "SLAMSTRAP_"), "=", 2)
		if len(parts) == 2 {
			applyConfigValue(cfg, parts[0], parts[1])
		}
	}
}

func applyConfigValue(cfg *Config, key, val string) {
	switch key {
	case "PREFIX":
		cfg.Prefix = val
	case "SRC_DIR":
		cfg.SrcDir = val
	case "G2O_REPO":
		cfg.G2O.URL = val
	case "G2O_COMMIT":
		cfg.G2O.Commit = val
	case "OPENVSLAM_REPO":
		cfg.OpenVSLAM.URL = val
	case "OPENVSLAM_COMMIT":
		cfg.OpenVSLAM.Commit = val
	case "JOBS":
		if n, err := parsePositive(val); err == nil {
			cfg.Jobs = n
		}
	case "MIRROR_ENDPOINT":
		cfg.MirrorEndpoint = val
	case "MIRROR_BUCKET":
		cfg.MirrorBucket = val
	case "MIRROR_REGION":
		cfg.MirrorRegion = val
	case "ACCESS_KEY_ID":
		cfg.MirrorAccessKey = val
	case "SECRET_ACCESS_KEY":
		cfg.MirrorSecret = val
	case "DEBUG":
		cfg.Debug = val == "1"
	}
}

func parsePositive(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("value %q is not a positive integer", s)
	}
	return n, nil
}

// Finalize computes the derived fields. Runs once; later calls are no-ops so
// nothing can recompute the generator or sudo command mid-pipeline.
func (cfg *Config) Finalize(r Runner, euid int) {
	if cfg.finalized {
		return
	}
	cfg.finalized = true

	if euid != 0 {
		if path, err := r.LookPath("sudo"); err == nil {
			cfg.Sudo = path
		}
	}

	// Prefer ninja when present, fall back to the generator every host has.
	if _, err := r.LookPath("ninja"); err == nil {
		cfg.Generator = "Ninja"
	} else {
		cfg.Generator = "Unix Makefiles"
	}
}

// CSparseInclude returns the resolved header-search path, set exactly once by
// the header-resolution stage between the two build targets.
func (cfg *Config) CSparseInclude() string { return cfg.csparseInc }

func (cfg *Config) setCSparseInclude(dir string) {
	if cfg.csparseInc == "" {
		cfg.csparseInc = dir
	}
}

// Checkout directories under the source root, one per library.
func (cfg *Config) G2ODir() string       { return filepath.Join(cfg.SrcDir, "g2o") }
func (cfg *Config) OpenVSLAMDir() string { return filepath.Join(cfg.SrcDir, "openvslam") }
