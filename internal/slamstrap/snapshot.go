package slamstrap

import (
	"archive/tar"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
	"golang.org/x/sys/unix"
	"lukechampine.com/blake3"
)

// Snapshots are compressed tarballs of a checkout, kept under
// <src-dir>/_snapshots. They make the offline path real: a host that has
// snapshotted both checkouts can be re-provisioned without network access.
// New snapshots are written as .tar.zst; .tar.gz and .tar.xz archives dropped
// in by hand restore fine too.

const snapshotDirName = "_snapshots"

func snapshotDir(cfg *Config) string {
	return filepath.Join(cfg.SrcDir, snapshotDirName)
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// saveSnapshot archives <src-dir>/<name> into the snapshot cache together
// with a BLAKE3 digest sidecar. A lock file serializes concurrent writers of
// the same snapshot, mirroring how the source cache guards downloads.
func saveSnapshot(cfg *Config, d *Diag, name string) error {
	src := filepath.Join(cfg.SrcDir, name)
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return fmt.Errorf("no checkout to snapshot at %s", src)
	}
	if err := os.MkdirAll(snapshotDir(cfg), 0o755); err != nil {
		return err
	}

	dest := filepath.Join(snapshotDir(cfg), name+".tar.zst")
	lock, err := os.OpenFile(dest+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer lock.Close()
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("failed to lock snapshot: %w", err)
	}
	defer unix.Flock(int(lock.Fd()), unix.LOCK_UN)
	defer os.Remove(dest + ".lock")

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	zw, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return err
	}
	tw := tar.NewWriter(zw)

	err = filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		// Build trees are reproducible output, not source; skip them.
		if rel == "build" && info.IsDir() {
			return filepath.SkipDir
		}
		if rel == "." {
			return nil
		}

		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(name, rel))
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err == nil {
		err = tw.Close()
	} else {
		tw.Close()
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return err
	}
	sum, err := digestFile(dest)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest+".b3", []byte(sum+"\n"), 0o644); err != nil {
		return err
	}
	d.Okf("snapshot saved: %s", dest)
	return nil
}

// decompressorFor picks the decoder by file suffix.
func decompressorFor(path string, r io.Reader) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(path, ".tar.zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr.IOReadCloser(), zr.Close, nil
	case strings.HasSuffix(path, ".tar.gz"):
		gr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gr, func() { gr.Close() }, nil
	case strings.HasSuffix(path, ".tar.xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported snapshot format: %s", filepath.Base(path))
}

func findSnapshot(cfg *Config, name string) (string, error) {
	for _, suffix := range []string{".tar.zst", ".tar.gz", ".tar.xz"} {
		path := filepath.Join(snapshotDir(cfg), name+suffix)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no snapshot for %q in %s", name, snapshotDir(cfg))
}

// restoreSnapshot unpacks a cached snapshot back under the source root,
// verifying the digest sidecar when one exists.
func restoreSnapshot(cfg *Config, d *Diag, name string) error {
	archive, err := findSnapshot(cfg, name)
	if err != nil {
		return err
	}

	if sidecar, err := os.ReadFile(archive + ".b3"); err == nil {
		want := strings.TrimSpace(string(sidecar))
		got, err := digestFile(archive)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("snapshot %s is corrupt: digest mismatch", filepath.Base(archive))
		}
	} else {
		d.Warnf("no digest sidecar for %s; restoring unverified", filepath.Base(archive))
	}

	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	rd, closeFn, err := decompressorFor(archive, f)
	if err != nil {
		return err
	}
	defer closeFn()

	destRoot, err := filepath.Abs(cfg.SrcDir)
	if err != nil {
		return err
	}
	tr := tar.NewReader(rd)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		target := filepath.Join(destRoot, hdr.Name)
		// Guard against path traversal inside the archive.
		if !strings.HasPrefix(target, destRoot+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in snapshot: %s", hdr.Name)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, hdr.FileInfo().Mode())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}

	d.Okf("restored %s from %s", name, filepath.Base(archive))
	return nil
}

// listSnapshots prints the cache contents with digest status.
func listSnapshots(cfg *Config, d *Diag) error {
	entries, err := os.ReadDir(snapshotDir(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			d.Infof("snapshot cache is empty")
			return nil
		}
		return err
	}

	var names []string
	for _, e := range entries {
		n := e.Name()
		if strings.HasSuffix(n, ".b3") || strings.HasSuffix(n, ".lock") || strings.HasSuffix(n, ".tmp") {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		path := filepath.Join(snapshotDir(cfg), n)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		verified := "unverified"
		if _, err := os.Stat(path + ".b3"); err == nil {
			verified = "b3"
		}
		d.Infof("%-28s %8d KiB  %s", n, info.Size()>>10, verified)
	}
	if len(names) == 0 {
		d.Infof("snapshot cache is empty")
	}
	return nil
}
