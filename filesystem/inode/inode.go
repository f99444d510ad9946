// Package inode implements the inode record and the one-sector-cache
// inode table manager (C4).
package inode

import (
	"encoding/binary"
	"fmt"

	"github.com/oss-userfs/userfs/backend/sector"
	"github.com/oss-userfs/userfs/util/layout"
)

// Kind discriminates a file inode from a directory inode. Polymorphism
// over file vs. directory is modeled as this tagged field, not
// inheritance; callers switch on it explicitly (spec.md §4.9).
type Kind uint32

const (
	// KindFile marks a regular file inode.
	KindFile Kind = 0
	// KindDir marks a directory inode.
	KindDir Kind = 1
)

// Inode is the fixed-size on-disk record for one file or directory: byte
// count (files) or entry count (directories), a type discriminator, and
// direct pointers to every data block the inode owns.
type Inode struct {
	Size int32
	Type Kind
	Data []uint32 // length == geometry.MaxSectorsPerFile
}

// New returns a zeroed inode of the given kind sized for geometry.
func New(kind Kind, g layout.Geometry) Inode {
	return Inode{Type: kind, Data: make([]uint32, g.MaxSectorsPerFile)}
}

func recordSize(g layout.Geometry) int {
	return 8 + g.MaxSectorsPerFile*4
}

func encode(in Inode, g layout.Geometry, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(in.Size))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(in.Type))
	for i := 0; i < g.MaxSectorsPerFile; i++ {
		var v uint32
		if i < len(in.Data) {
			v = in.Data[i]
		}
		binary.LittleEndian.PutUint32(buf[8+i*4:12+i*4], v)
	}
}

func decode(buf []byte, g layout.Geometry) Inode {
	in := New(KindFile, g)
	in.Size = int32(binary.LittleEndian.Uint32(buf[0:4]))
	in.Type = Kind(binary.LittleEndian.Uint32(buf[4:8]))
	for i := 0; i < g.MaxSectorsPerFile; i++ {
		in.Data[i] = binary.LittleEndian.Uint32(buf[8+i*4 : 12+i*4])
	}
	return in
}

// Cache is the one-sector read cache threaded explicitly through a single
// call's worth of inode table access, exactly as spec.md §9 specifies: "a
// small value type threaded through the walk; not a globally shared
// cache". The zero value is a valid, empty cache.
type Cache struct {
	sector int
	buf    []byte
	valid  bool
}

// Table manages reading and writing inode records by index against a
// sector.Device, using a Cache to avoid re-reading the same sector across
// consecutive calls (e.g. sibling lookups during one path walk).
type Table struct {
	dev      *sector.Device
	geometry layout.Geometry
	regions  layout.Regions
}

// NewTable builds an inode Table over dev using the given geometry.
func NewTable(dev *sector.Device, g layout.Geometry) *Table {
	return &Table{dev: dev, geometry: g, regions: layout.Regions(g)}
}

func (t *Table) locate(n int) (sec int, offset int) {
	perSector := t.geometry.InodesPerSector()
	sec = t.regions.InodeTableStart + n/perSector
	offset = (n % perSector) * recordSize(t.geometry)
	return
}

func (t *Table) readSector(c *Cache, sec int) ([]byte, error) {
	if c != nil && c.valid && c.sector == sec {
		return c.buf, nil
	}
	buf := make([]byte, t.geometry.SectorSize)
	if err := t.dev.ReadSector(sec, buf); err != nil {
		return nil, err
	}
	if c != nil {
		c.sector = sec
		c.buf = buf
		c.valid = true
	}
	return buf, nil
}

// Load reads the inode at index n, using and updating c to skip re-reading
// the same sector as a previous Load/Store call in the same walk. Pass nil
// for c to bypass caching.
func (t *Table) Load(c *Cache, n int) (Inode, error) {
	if n < 0 || n >= t.geometry.MaxFiles {
		return Inode{}, fmt.Errorf("inode index %d out of range [0,%d)", n, t.geometry.MaxFiles)
	}
	sec, offset := t.locate(n)
	buf, err := t.readSector(c, sec)
	if err != nil {
		return Inode{}, fmt.Errorf("reading inode table sector %d: %w", sec, err)
	}
	sz := recordSize(t.geometry)
	return decode(buf[offset:offset+sz], t.geometry), nil
}

// Store writes in back to index n, persisting the containing sector
// immediately and refreshing c so subsequent Loads in the same walk see
// the new value without a re-read.
func (t *Table) Store(c *Cache, n int, in Inode) error {
	if n < 0 || n >= t.geometry.MaxFiles {
		return fmt.Errorf("inode index %d out of range [0,%d)", n, t.geometry.MaxFiles)
	}
	sec, offset := t.locate(n)
	buf, err := t.readSector(c, sec)
	if err != nil {
		return fmt.Errorf("reading inode table sector %d: %w", sec, err)
	}
	// readSector may have handed back a cached buffer shared with a
	// previous call; copy-on-write so we never mutate someone else's view.
	owned := make([]byte, len(buf))
	copy(owned, buf)
	sz := recordSize(t.geometry)
	encode(in, t.geometry, owned[offset:offset+sz])
	if err := t.dev.WriteSector(sec, owned); err != nil {
		return fmt.Errorf("writing inode table sector %d: %w", sec, err)
	}
	if c != nil {
		c.sector = sec
		c.buf = owned
		c.valid = true
	}
	return nil
}

// ZeroAll zeroes every inode-table sector, including the one holding
// inode 0 (the root); the boot/format path stores the root inode
// afterwards. Used only at format time.
func (t *Table) ZeroAll() error {
	empty := make([]byte, t.geometry.SectorSize)
	for s := t.regions.InodeTableStart; s < t.regions.InodeTableStart+t.regions.InodeTableCount; s++ {
		if err := t.dev.WriteSector(s, empty); err != nil {
			return fmt.Errorf("zeroing inode table sector %d: %w", s, err)
		}
	}
	return nil
}

// DataEntries returns the number of data[] slots a live inode of this size
// actually uses: ceil(size/unit), where unit is SectorSize for a file and
// DirentsPerSector for a directory.
func (in Inode) DataEntries(g layout.Geometry) int {
	if in.Type == KindDir {
		return ceilDiv(int(in.Size), g.DirentsPerSector())
	}
	return ceilDiv(int(in.Size), g.SectorSize)
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
