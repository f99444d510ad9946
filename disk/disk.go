// Package disk provides a thin wrapper that boots a filesystem.FileSystem
// against a host file or block device, the way github.com/oss-userfs/userfs
// is most commonly driven from a CLI or test harness.
package disk

import (
	"fmt"
	"os"

	"github.com/oss-userfs/userfs/backend/file"
	"github.com/oss-userfs/userfs/filesystem"
	"github.com/oss-userfs/userfs/util/layout"
)

// Disk is a reference to a single backing file or block device that a
// FileSystem has been, or will be, booted against.
type Disk struct {
	Path              string
	Info              os.FileInfo
	Type              Type
	Size              int64
	LogicalBlocksize  int64
	PhysicalBlocksize int64
}

// Type represents the kind of backing store a Disk wraps.
type Type int

const (
	// File is a plain file-based disk image.
	File Type = iota
	// Device is an OS-managed block device.
	Device
)

// Open stats path and returns a Disk describing it, without booting a
// filesystem against it yet. If path does not exist, Size is left at 0 and
// Boot will format a fresh image there using the geometry it is given.
func Open(path string) (*Disk, error) {
	d := &Disk{Path: path, Type: File, LogicalBlocksize: 512, PhysicalBlocksize: 512}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("statting %s: %w", path, err)
	}
	d.Info = info
	d.Size = info.Size()
	if info.Mode()&os.ModeDevice != 0 {
		d.Type = Device
		if raw, openErr := os.Open(path); openErr == nil {
			if logical, physical, probeErr := file.ProbeSectorSize(raw); probeErr == nil {
				d.LogicalBlocksize = logical
				d.PhysicalBlocksize = physical
			}
			_ = raw.Close()
		}
	}
	return d, nil
}

// Boot creates (if Path does not exist) or loads (if it does) a
// filesystem.FileSystem for geometry g at d.Path, the equivalent of mkfs
// followed immediately by mount.
func (d *Disk) Boot(g layout.Geometry) (*filesystem.FileSystem, error) {
	fs := filesystem.New(g)
	if err := fs.Boot(d.Path); err != nil {
		return nil, fmt.Errorf("booting filesystem at %s: %w", d.Path, err)
	}
	info, err := os.Stat(d.Path)
	if err == nil {
		d.Info = info
		d.Size = info.Size()
	}
	return fs, nil
}
