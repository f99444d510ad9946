package disk

import (
	"path/filepath"
	"testing"

	"github.com/oss-userfs/userfs/util/layout"
)

func smallGeometry() layout.Geometry {
	return layout.Geometry{SectorSize: 512, TotalSectors: 256, MaxFiles: 16, MaxSectorsPerFile: 4, MaxOpenFiles: 4}
}

func TestOpenMissingPathLeavesSizeZero(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "missing.img"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.Size != 0 || d.Type != File {
		t.Fatalf("Open(missing) = %+v, want zero size, Type=File", d)
	}
}

func TestBootFormatsThenBootLoadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	g := smallGeometry()
	fs, err := d.Boot(g)
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if err := fs.DirCreate("/data"); err != nil {
		t.Fatalf("DirCreate: %v", err)
	}
	if err := fs.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if d.Size == 0 {
		t.Fatalf("expected Disk.Size to reflect the synced image")
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	fs2, err := d2.Boot(g)
	if err != nil {
		t.Fatalf("reopen Boot: %v", err)
	}
	isDir, _, err := fs2.Stat("/data")
	if err != nil || !isDir {
		t.Fatalf("Stat(/data) after reboot = (%v, %v)", isDir, err)
	}
}
