// Package sector implements the sector device (C1): a fixed-count array of
// equal-sized sectors held in memory, addressable by integer index, that
// can be loaded from or saved to a host file as a single unit.
//
// The device itself never partially persists: boot loads the whole backing
// file into memory (or formats a fresh image if none exists), and sync
// writes the whole image back out. Everything in between operates on the
// in-memory image only, matching spec.md §5's "no fsync/flush semantics
// finer than whole-image save" ordering guarantee.
package sector

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oss-userfs/userfs/backend"
	"github.com/oss-userfs/userfs/backend/file"
	"github.com/oss-userfs/userfs/util/layout"
)

// ErrSizeMismatch is returned by Load when an existing backing file's size
// does not equal SectorSize*TotalSectors for the requested geometry.
var ErrSizeMismatch = errors.New("backing file size does not match geometry")

// Device is an in-memory image of geometry.TotalSectors sectors of
// geometry.SectorSize bytes each.
type Device struct {
	geometry layout.Geometry
	image    []byte
	path     string
}

// New allocates a zeroed in-memory image for the given geometry.
func New(g layout.Geometry) *Device {
	return &Device{
		geometry: g,
		image:    make([]byte, g.SectorSize*g.TotalSectors),
	}
}

// Geometry returns the device's geometry.
func (d *Device) Geometry() layout.Geometry {
	return d.geometry
}

// ReadSector copies sector idx into buf, which must be at least SectorSize
// bytes.
func (d *Device) ReadSector(idx int, buf []byte) error {
	if idx < 0 || idx >= d.geometry.TotalSectors {
		return fmt.Errorf("sector index %d out of range [0,%d)", idx, d.geometry.TotalSectors)
	}
	off := idx * d.geometry.SectorSize
	n := copy(buf, d.image[off:off+d.geometry.SectorSize])
	if n != d.geometry.SectorSize {
		return fmt.Errorf("short sector read: got %d of %d bytes", n, d.geometry.SectorSize)
	}
	return nil
}

// WriteSector copies buf (at least SectorSize bytes) into sector idx.
func (d *Device) WriteSector(idx int, buf []byte) error {
	if idx < 0 || idx >= d.geometry.TotalSectors {
		return fmt.Errorf("sector index %d out of range [0,%d)", idx, d.geometry.TotalSectors)
	}
	if len(buf) < d.geometry.SectorSize {
		return fmt.Errorf("short sector write: got %d of %d bytes", len(buf), d.geometry.SectorSize)
	}
	off := idx * d.geometry.SectorSize
	copy(d.image[off:off+d.geometry.SectorSize], buf[:d.geometry.SectorSize])
	return nil
}

// Size returns the total device size in bytes.
func (d *Device) Size() int64 {
	return int64(len(d.image))
}

// ReadMagic returns the first four bytes of sector 0, the superblock's
// magic field.
func (d *Device) ReadMagic() uint32 {
	if len(d.image) < 4 {
		return 0
	}
	return uint32(d.image[0]) | uint32(d.image[1])<<8 | uint32(d.image[2])<<16 | uint32(d.image[3])<<24
}

// WriteMagic sets the first four bytes of sector 0.
func (d *Device) WriteMagic(magic uint32) {
	buf := make([]byte, d.geometry.SectorSize)
	_ = d.ReadSector(0, buf)
	buf[0] = byte(magic)
	buf[1] = byte(magic >> 8)
	buf[2] = byte(magic >> 16)
	buf[3] = byte(magic >> 24)
	_ = d.WriteSector(0, buf)
}

// Load reads path in full into the in-memory image, if it exists. It
// reports existed=false (and leaves the image untouched, zeroed) when the
// file is absent, so the caller can format a fresh filesystem; it returns
// ErrSizeMismatch if an existing file's length disagrees with the device's
// geometry.
func (d *Device) Load(path string) (existed bool, err error) {
	d.path = path
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return false, nil
	} else if statErr != nil {
		return false, statErr
	}

	st, err := file.OpenFromPath(path, true)
	if err != nil {
		return false, fmt.Errorf("opening backing file %s: %w", path, err)
	}
	defer func() { _ = st.Close() }()

	if err := d.LoadStorage(st); err != nil {
		return true, fmt.Errorf("loading backing file %s: %w", path, err)
	}
	return true, nil
}

// Save writes the whole in-memory image to path, creating it if it does
// not already exist.
func (d *Device) Save(path string) error {
	d.path = path
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		st, err := file.CreateFromPath(path, int64(len(d.image)))
		if err != nil {
			return fmt.Errorf("creating backing file %s: %w", path, err)
		}
		_ = st.Close()
	}

	st, err := file.OpenFromPath(path, false)
	if err != nil {
		return fmt.Errorf("opening backing file %s for write: %w", path, err)
	}
	defer func() { _ = st.Close() }()

	if err := d.SaveStorage(st); err != nil {
		return fmt.Errorf("saving backing file %s: %w", path, err)
	}
	return nil
}

// LoadStorage reads the whole image from an arbitrary backend.Storage (a
// host file, a real block device, or the in-memory storage from package
// backend/mem), validating that its size matches this device's geometry.
func (d *Device) LoadStorage(st backend.Storage) error {
	info, err := st.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if info.Size() != int64(len(d.image)) {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrSizeMismatch, info.Size(), len(d.image))
	}
	n, err := st.ReadAt(d.image, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read: %w", err)
	}
	if n != len(d.image) {
		return fmt.Errorf("short read: got %d of %d bytes", n, len(d.image))
	}
	return nil
}

// SaveStorage writes the whole image to an arbitrary backend.Storage.
func (d *Device) SaveStorage(st backend.Storage) error {
	w, err := st.Writable()
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	n, err := w.WriteAt(d.image, 0)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(d.image) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(d.image))
	}
	return nil
}

// Path returns the most recent backing file path passed to Load or Save.
func (d *Device) Path() string {
	return d.path
}
