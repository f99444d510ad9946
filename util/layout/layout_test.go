package layout

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Default.Validate(); err != nil {
		t.Fatalf("Default geometry should validate: %v", err)
	}
}

func TestValidateRejectsZeroFields(t *testing.T) {
	bad := Default
	bad.SectorSize = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero sector size")
	}
}

func TestRegionsOrdering(t *testing.T) {
	r := Regions(Default)
	if r.SuperblockStart != 0 {
		t.Fatalf("superblock must start at sector 0")
	}
	if r.InodeBitmapStart != 1 {
		t.Fatalf("inode bitmap must start at sector 1, got %d", r.InodeBitmapStart)
	}
	if r.DataBitmapStart <= r.InodeBitmapStart {
		t.Fatalf("data bitmap must follow inode bitmap")
	}
	if r.InodeTableStart <= r.DataBitmapStart {
		t.Fatalf("inode table must follow data bitmap")
	}
	if r.DataBlockStart <= r.InodeTableStart {
		t.Fatalf("data region must follow inode table")
	}
	if r.DataBlockStart >= Default.TotalSectors {
		t.Fatalf("data region must leave room within TotalSectors")
	}
}

func TestInodesPerSectorNoStraddle(t *testing.T) {
	g := Default
	perSector := g.InodesPerSector()
	if perSector*g.inodeSize() > g.SectorSize {
		t.Fatalf("inodes must not straddle a sector boundary")
	}
	if perSector < 1 {
		t.Fatalf("at least one inode must fit per sector")
	}
}

func TestDirentsPerSector(t *testing.T) {
	// With 512-byte sectors and 20-byte dirents, each data sector holds 25
	// entries — matching the reference implementation's own SECTOR_SIZE=512
	// and sizeof(dirent_t)=20 arithmetic, not merely this port's choice.
	if got := Default.DirentsPerSector(); got != 25 {
		t.Fatalf("DirentsPerSector = %d, want 25", got)
	}
}
