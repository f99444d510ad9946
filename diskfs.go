// Package diskfs is the top-level convenience entry point: open or create a
// backing file or block device and boot a filesystem.FileSystem against it,
// without having to construct a layout.Geometry or disk.Disk by hand.
//
// Example, creating a fresh image and writing a file to it:
//
//	d, err := diskfs.Create("/tmp/image.userfs", layout.Default)
//	fs, err := d.Boot(layout.Default)
//	err = fs.FileCreate("/hello.txt")
//	fd, err := fs.FileOpen("/hello.txt")
//	_, err = fs.FileWrite(fd, []byte("hello"))
//	err = fs.FileClose(fd)
//	err = fs.Sync()
package diskfs

import (
	"errors"
	"fmt"
	"os"

	"github.com/oss-userfs/userfs/disk"
	"github.com/oss-userfs/userfs/util/layout"
)

// ErrAlreadyExists is returned by Create when path already exists.
var ErrAlreadyExists = errors.New("backing path already exists")

// Open opens an existing backing file or block device at path for
// subsequent Boot calls. The path must already exist.
func Open(path string) (*disk.Disk, error) {
	if path == "" {
		return nil, errors.New("must pass a backing file path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("provided path %s does not exist", path)
	}
	return disk.Open(path)
}

// Create prepares a fresh backing file at path for geometry g. path must
// not already exist; Boot performs the actual formatting the first time it
// loads the (still-missing) file, matching FileSystem.Boot's
// format-when-missing behavior.
func Create(path string, g layout.Geometry) (*disk.Disk, error) {
	if path == "" {
		return nil, errors.New("must pass a backing file path")
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	return disk.Open(path)
}
