//go:build ignore

package main

import (
	"archive/tar"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
)

// Standalone helper: walk a snapshot tarball, confirm it holds a git
// checkout, and print its BLAKE3 digest for comparison with the sidecar.
//
//	go run check_snapshot.go <snapshot.tar.zst>
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: check_snapshot <snapshot.tar.zst>")
		os.Exit(1)
	}

	path := os.Args[1]
	fmt.Printf("Checking %s...\n", path)

	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	zr, err := zstd.NewReader(io.TeeReader(f, h))
	if err != nil {
		fmt.Printf("Error creating zstd reader: %v\n", err)
		os.Exit(1)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	entries := 0
	hasGitDir := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Printf("Error reading tar: %v\n", err)
			os.Exit(1)
		}
		entries++
		if strings.Contains(hdr.Name, "/.git/") {
			hasGitDir = true
		}
	}

	fmt.Printf("%d entries\n", entries)
	fmt.Printf("blake3: %s\n", hex.EncodeToString(h.Sum(nil)))
	if !hasGitDir {
		fmt.Println("No .git metadata inside; restore would not be fetchable!")
		os.Exit(1)
	}
}
