// Package layout derives the five on-disk region boundaries (superblock,
// inode bitmap, data-block bitmap, inode table, data region) from a
// Geometry, replacing the reference implementation's compile-time
// #define arithmetic with a validated value type.
package layout

import "fmt"

// inodeFixedFields is the on-disk size, in bytes, of an inode record's
// fixed fields: a 4-byte size and a 4-byte type. A whole record (see
// inodeSize) adds MaxSectorsPerFile 4-byte sector pointers. An inode must
// never straddle a sector boundary, so InodesPerSector is computed by
// integer division, not by packing across sectors.
const inodeFixedFields = 8 // size (4) + type (4)

// DirentSize is the fixed on-disk size of one directory entry: a 16-byte
// name field followed by a 4-byte child inode number.
const DirentSize = 20

// NameFieldSize is the on-disk width of a dirent's name field, including
// its terminating NUL.
const NameFieldSize = 16

// Geometry is the set of compile-time-equivalent capacity constants that
// determine a filesystem's on-disk layout. All mounts of the same backing
// file must agree on the same Geometry.
type Geometry struct {
	SectorSize        int
	TotalSectors      int
	MaxFiles          int
	MaxSectorsPerFile int
	MaxOpenFiles      int
}

// Default is the geometry used when no explicit profile is requested:
// 512-byte sectors, a modest fixed-size container, a small inode and
// open-file cap, matching the scale of the reference implementation's
// sample disks.
var Default = Geometry{
	SectorSize:        512,
	TotalSectors:      10240,
	MaxFiles:          1024,
	MaxSectorsPerFile: 30,
	MaxOpenFiles:      256,
}

// Magic is the 32-bit sentinel stored in the first four bytes of sector 0.
const Magic uint32 = 0xdeadbeef

// Validate checks that the geometry is internally consistent.
func (g Geometry) Validate() error {
	switch {
	case g.SectorSize <= 0:
		return fmt.Errorf("sector size must be positive")
	case g.TotalSectors <= 0:
		return fmt.Errorf("total sectors must be positive")
	case g.MaxFiles <= 0:
		return fmt.Errorf("max files must be positive")
	case g.MaxSectorsPerFile <= 0:
		return fmt.Errorf("max sectors per file must be positive")
	case g.MaxOpenFiles <= 0:
		return fmt.Errorf("max open files must be positive")
	}
	regions := Regions(g)
	if regions.DataBlockStart >= g.TotalSectors {
		return fmt.Errorf("geometry leaves no room for a data region: metadata consumes %d of %d sectors", regions.DataBlockStart, g.TotalSectors)
	}
	return nil
}

// InodesPerSector is the number of fixed-size inode records that fit in one
// sector without straddling a boundary.
func (g Geometry) InodesPerSector() int {
	return g.SectorSize / g.inodeSize()
}

func (g Geometry) inodeSize() int {
	return inodeFixedFields + g.MaxSectorsPerFile*4
}

// DirentsPerSector is the number of 20-byte dirents that fit in one sector.
func (g Geometry) DirentsPerSector() int {
	return g.SectorSize / DirentSize
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Regions holds the sector-range boundaries of every region, in on-disk
// order.
type Regions struct {
	SuperblockStart   int
	InodeBitmapStart  int
	InodeBitmapCount  int
	DataBitmapStart   int
	DataBitmapCount   int
	InodeTableStart   int
	InodeTableCount   int
	DataBlockStart    int
	InodeBitmapBits   int
	DataBitmapBits    int
}

// Regions derives the five on-disk regions from a Geometry, exactly as
// spec.md §3 describes: superblock at sector 0, then the inode bitmap
// (ceil(MaxFiles/8) bytes rounded up to whole sectors), then the
// data-block bitmap (ceil(TotalSectors/8) bytes rounded up), then the
// inode table (inodes packed without straddling sector boundaries), then
// the data region occupying everything else.
func Regions(g Geometry) Regions {
	inodeBitmapBytes := ceilDiv(g.MaxFiles, 8)
	inodeBitmapSectors := ceilDiv(inodeBitmapBytes, g.SectorSize)

	dataBitmapBytes := ceilDiv(g.TotalSectors, 8)
	dataBitmapSectors := ceilDiv(dataBitmapBytes, g.SectorSize)

	inodesPerSector := g.InodesPerSector()
	inodeTableSectors := ceilDiv(g.MaxFiles, inodesPerSector)

	inodeBitmapStart := 1
	dataBitmapStart := inodeBitmapStart + inodeBitmapSectors
	inodeTableStart := dataBitmapStart + dataBitmapSectors
	dataBlockStart := inodeTableStart + inodeTableSectors

	return Regions{
		SuperblockStart:  0,
		InodeBitmapStart: inodeBitmapStart,
		InodeBitmapCount: inodeBitmapSectors,
		DataBitmapStart:  dataBitmapStart,
		DataBitmapCount:  dataBitmapSectors,
		InodeTableStart:  inodeTableStart,
		InodeTableCount:  inodeTableSectors,
		DataBlockStart:   dataBlockStart,
		InodeBitmapBits:  g.MaxFiles,
		DataBitmapBits:   g.TotalSectors,
	}
}
