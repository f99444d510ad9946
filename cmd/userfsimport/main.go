// Command userfsimport writes a host file into a userfs image a block at a
// time, then seeks to an offset (default 0) and re-reads a chunk (default
// 1024 bytes) back, failing if it differs from the same range of the host
// file.
//
// Usage: userfsimport disk-image path-in-image host-file [offset [size]]
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/oss-userfs/userfs/filesystem"
	"github.com/oss-userfs/userfs/util/layout"
)

const blockSize = 1024

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "userfsimport:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 3 || len(args) > 5 {
		return fmt.Errorf("usage: userfsimport disk-image path-in-image host-file [offset [size]]")
	}
	diskImage, imagePath, hostFile := args[0], args[1], args[2]

	offset := 0
	size := blockSize
	var err error
	if len(args) >= 4 {
		if offset, err = strconv.Atoi(args[3]); err != nil {
			return fmt.Errorf("invalid offset %q: %w", args[3], err)
		}
	}
	if len(args) == 5 {
		if size, err = strconv.Atoi(args[4]); err != nil {
			return fmt.Errorf("invalid size %q: %w", args[4], err)
		}
	}

	fs := filesystem.New(layout.Default)
	if err := fs.Boot(diskImage); err != nil {
		return fmt.Errorf("booting %s: %w", diskImage, err)
	}

	if err := fs.FileCreate(imagePath); err != nil {
		return fmt.Errorf("creating %s: %w", imagePath, err)
	}
	fd, err := fs.FileOpen(imagePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", imagePath, err)
	}
	defer func() { _ = fs.FileClose(fd) }()

	src, err := os.Open(hostFile)
	if err != nil {
		return fmt.Errorf("opening %s to import: %w", hostFile, err)
	}
	defer func() { _ = src.Close() }()

	buf := make([]byte, blockSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := fs.FileWrite(fd, buf[:n]); werr != nil {
				return fmt.Errorf("writing %s: %w", imagePath, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("reading %s: %w", hostFile, rerr)
		}
	}

	if _, err := fs.FileSeek(fd, offset); err != nil {
		return fmt.Errorf("seeking to %d: %w", offset, err)
	}
	got := make([]byte, size)
	n, err := fs.FileRead(fd, got)
	if err != nil {
		return fmt.Errorf("reading back at offset %d: %w", offset, err)
	}
	got = got[:n]

	want, err := readHostChunk(hostFile, offset, size)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("mismatch at offset %d: image has %d bytes, host file has %d bytes", offset, len(got), len(want))
	}

	fmt.Printf("imported %s into %s at %s, offset %d verified (%d bytes)\n", hostFile, imagePath, diskImage, offset, len(got))
	return fs.Sync()
}

func readHostChunk(path string, offset, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
