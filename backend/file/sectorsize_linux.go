//go:build linux

package file

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	blkSSZGet = 0x1268
	blkBSZGet = 0x80081270
)

// ProbeSectorSize returns the logical and physical sector size the kernel
// reports for a real block device. disk.Open uses it to fill in a Disk's
// LogicalBlocksize and PhysicalBlocksize when the path is a device; it is
// not meaningful for plain regular files.
func ProbeSectorSize(f *os.File) (logical, physical int64, err error) {
	fd := int(f.Fd())
	l, err := unix.IoctlGetInt(fd, blkSSZGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get logical sector size: %w", err)
	}
	p, err := unix.IoctlGetInt(fd, blkBSZGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get physical sector size: %w", err)
	}
	return int64(l), int64(p), nil
}
