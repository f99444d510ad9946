//go:build darwin

package file

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// these constants should be part of "golang.org/x/sys/unix", but aren't, yet
const (
	dkioGetBlockSize         = 0x40046418
	dkioGetPhysicalBlockSize = 0x4004644D
)

// ProbeSectorSize returns the logical and physical sector size the kernel
// reports for a real block device.
func ProbeSectorSize(f *os.File) (logical, physical int64, err error) {
	fd := int(f.Fd())
	l, err := unix.IoctlGetInt(fd, dkioGetBlockSize)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get logical sector size: %w", err)
	}
	p, err := unix.IoctlGetInt(fd, dkioGetPhysicalBlockSize)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get physical sector size: %w", err)
	}
	return int64(l), int64(p), nil
}
