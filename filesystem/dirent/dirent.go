// Package dirent implements the directory entry layout and the
// append/scan/remove operations over a directory inode's data blocks (C5).
package dirent

import (
	"encoding/binary"
	"fmt"

	"github.com/oss-userfs/userfs/backend/sector"
	"github.com/oss-userfs/userfs/filesystem/inode"
	"github.com/oss-userfs/userfs/util/bitmap"
	"github.com/oss-userfs/userfs/util/layout"
)

// Entry is one 16-byte-name + 4-byte-child-inode directory entry.
type Entry struct {
	Name  string
	Child int32
}

func encode(e Entry) []byte {
	buf := make([]byte, layout.DirentSize)
	name := []byte(e.Name)
	if len(name) > layout.NameFieldSize-1 {
		name = name[:layout.NameFieldSize-1]
	}
	copy(buf[0:layout.NameFieldSize], name)
	binary.LittleEndian.PutUint32(buf[layout.NameFieldSize:], uint32(e.Child))
	return buf
}

func decode(buf []byte) Entry {
	nameBytes := buf[0:layout.NameFieldSize]
	end := len(nameBytes)
	for i, b := range nameBytes {
		if b == 0 {
			end = i
			break
		}
	}
	return Entry{
		Name:  string(nameBytes[:end]),
		Child: int32(binary.LittleEndian.Uint32(buf[layout.NameFieldSize:])),
	}
}

// Dir wires together a directory inode and the data-block bitmap so it can
// grow its own dirent array on demand.
type Dir struct {
	dev       *sector.Device
	geometry  layout.Geometry
	regions   layout.Regions
	dataBitmap *bitmap.Bitmap
}

// New builds a Dir operating against dev, using dataBitmap (the live,
// in-memory data-block bitmap) to allocate new dirent-holding sectors.
func New(dev *sector.Device, g layout.Geometry, dataBitmap *bitmap.Bitmap) *Dir {
	return &Dir{dev: dev, geometry: g, regions: layout.Regions(g), dataBitmap: dataBitmap}
}

func (d *Dir) readDataSector(sec uint32) ([]byte, error) {
	buf := make([]byte, d.geometry.SectorSize)
	if err := d.dev.ReadSector(int(sec), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Append adds a new dirent (name, child) to the end of parent's entry
// array, allocating a fresh data-block sector from the bitmap whenever the
// array's current last group is full. It mutates parent in place (callers
// must persist the inode afterward) and persists the touched data sector
// immediately. It returns the data-bitmap bit it just set, or -1 if no new
// sector was allocated; callers must persist that bit to the on-disk
// data-bitmap region themselves (the bitmap object Append mutates is only
// the live in-memory copy).
func (d *Dir) Append(parent *inode.Inode, name string, child int32) (int, error) {
	perSector := d.geometry.DirentsPerSector()
	group := int(parent.Size) / perSector
	if group >= len(parent.Data) {
		return -1, fmt.Errorf("directory has reached the maximum of %d data blocks", len(parent.Data))
	}

	allocated := -1
	var sec uint32
	var buf []byte
	if int(parent.Size) == group*perSector {
		loc := d.dataBitmap.FirstFree(d.regions.DataBitmapBits)
		if loc < 0 {
			return -1, fmt.Errorf("no free data-block sectors")
		}
		if err := d.dataBitmap.Set(loc); err != nil {
			return -1, err
		}
		allocated = loc
		sec = uint32(loc)
		parent.Data[group] = sec
		buf = make([]byte, d.geometry.SectorSize)
	} else {
		sec = parent.Data[group]
		var err error
		buf, err = d.readDataSector(sec)
		if err != nil {
			return -1, fmt.Errorf("reading directory data sector %d: %w", sec, err)
		}
	}

	offset := (int(parent.Size) - group*perSector) * layout.DirentSize
	copy(buf[offset:offset+layout.DirentSize], encode(Entry{Name: name, Child: child}))

	if err := d.dev.WriteSector(int(sec), buf); err != nil {
		return -1, fmt.Errorf("writing directory data sector %d: %w", sec, err)
	}
	parent.Size++
	return allocated, nil
}

// Scan iterates every live entry of dir (using its Size and Data fields,
// not the whole fixed-size array) and calls fn for each. Scan stops and
// returns fn's error if fn returns non-nil.
func (d *Dir) Scan(dir inode.Inode, fn func(idx int, e Entry) error) error {
	perSector := d.geometry.DirentsPerSector()
	groups := ceilDiv(int(dir.Size), perSector)
	idx := 0
	for g := 0; g < groups; g++ {
		buf, err := d.readDataSector(dir.Data[g])
		if err != nil {
			return fmt.Errorf("reading directory data sector %d: %w", dir.Data[g], err)
		}
		inThisGroup := perSector
		if remaining := int(dir.Size) - g*perSector; remaining < inThisGroup {
			inThisGroup = remaining
		}
		for j := 0; j < inThisGroup; j++ {
			off := j * layout.DirentSize
			e := decode(buf[off : off+layout.DirentSize])
			if err := fn(idx, e); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}

// Find looks up name among dir's live entries, returning its child inode
// number and true, or (0, false) if not present.
func (d *Dir) Find(dir inode.Inode, name string) (int32, bool) {
	var found int32
	ok := false
	_ = d.Scan(dir, func(_ int, e Entry) error {
		if e.Name == name {
			found, ok = e.Child, true
		}
		return nil
	})
	return found, ok
}

// Remove deletes the entry whose Child equals childInode from parent,
// compacting the dirent array so it stays hole-free (spec.md §4.3), and
// mutates parent.Size in place. It returns an error if no such entry
// exists. Data blocks that become entirely empty after compaction are
// released back to the data-block bitmap, keeping the invariant "every
// live sector is referenced by exactly one live inode" intact (this goes
// beyond what spec.md §4.3 requires, which explicitly leaves it optional).
// Remove returns the data-bitmap bits it just cleared (empty if none);
// callers must persist those bits to the on-disk data-bitmap region
// themselves (the bitmap object Remove mutates is only the live
// in-memory copy).
func (d *Dir) Remove(parent *inode.Inode, childInode int32) ([]int, error) {
	perSector := d.geometry.DirentsPerSector()
	groups := ceilDiv(int(parent.Size), perSector)

	entries := make([]Entry, 0, parent.Size)
	removed := false
	for g := 0; g < groups; g++ {
		buf, err := d.readDataSector(parent.Data[g])
		if err != nil {
			return nil, fmt.Errorf("reading directory data sector %d: %w", parent.Data[g], err)
		}
		inThisGroup := perSector
		if remaining := int(parent.Size) - g*perSector; remaining < inThisGroup {
			inThisGroup = remaining
		}
		for j := 0; j < inThisGroup; j++ {
			off := j * layout.DirentSize
			e := decode(buf[off : off+layout.DirentSize])
			if e.Child == childInode && !removed {
				removed = true
				continue
			}
			entries = append(entries, e)
		}
	}
	if !removed {
		return nil, fmt.Errorf("no directory entry for inode %d", childInode)
	}

	newGroups := ceilDiv(len(entries), perSector)
	for g := 0; g < newGroups; g++ {
		buf := make([]byte, d.geometry.SectorSize)
		start := g * perSector
		end := start + perSector
		if end > len(entries) {
			end = len(entries)
		}
		for j, e := range entries[start:end] {
			off := j * layout.DirentSize
			copy(buf[off:off+layout.DirentSize], encode(e))
		}
		if err := d.dev.WriteSector(int(parent.Data[g]), buf); err != nil {
			return nil, fmt.Errorf("writing directory data sector %d: %w", parent.Data[g], err)
		}
	}
	var released []int
	for g := newGroups; g < groups; g++ {
		if err := d.dataBitmap.Clear(int(parent.Data[g])); err != nil {
			return nil, fmt.Errorf("releasing directory data sector %d: %w", parent.Data[g], err)
		}
		released = append(released, int(parent.Data[g]))
		parent.Data[g] = 0
	}
	parent.Size = int32(len(entries))
	return released, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
