//go:build !linux && !darwin

package file

import (
	"errors"
	"os"
)

// ProbeSectorSize is unsupported on this platform; backing files are
// assumed to match the configured Geometry.SectorSize.
func ProbeSectorSize(f *os.File) (logical, physical int64, err error) {
	return 0, 0, errors.New("block device sector size probing is not supported on this platform")
}
