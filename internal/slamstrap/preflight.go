package slamstrap

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const (
	probeTimeout = 5 * time.Second

	// Below this much free space on the source filesystem the build of two
	// C++ trees is unlikely to finish.
	lowSpaceBytes = 2 << 30
)

// preflight validates environment preconditions before any mutating action.
// Privilege and distro-family problems are fatal; reachability and disk
// space are advisory only, since a fully cached source tree can still build
// offline.
func preflight(cfg *Config, d *Diag, euid int) error {
	if euid != 0 && cfg.Sudo == "" {
		return configErrorf("not running as root and sudo was not found; install sudo or rerun as root")
	}

	if _, err := os.Stat(cfg.DebianMarker); err != nil {
		return missingErrorf("%s not found: only Debian-based hosts are supported", cfg.DebianMarker)
	}

	conn, err := net.DialTimeout("tcp", cfg.ProbeAddr, probeTimeout)
	if err != nil {
		d.Warnf("cannot reach %s: %v (continuing; cached sources may still work)", cfg.ProbeAddr, err)
	} else {
		conn.Close()
	}

	checkFreeSpace(cfg, d)
	return nil
}

// checkFreeSpace warns when the filesystem holding the source directory is
// nearly full. Walks up to the nearest existing parent on the first run,
// before the directory itself exists.
func checkFreeSpace(cfg *Config, d *Diag) {
	dir := cfg.SrcDir
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}

	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		d.Debugf("statfs %s: %v", dir, err)
		return
	}
	free := uint64(st.Bavail) * uint64(st.Bsize)
	if free < lowSpaceBytes {
		d.Warnf("only %d MiB free under %s; the builds may run out of space", free>>20, dir)
	}
}
