package diskfs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/oss-userfs/userfs/util/layout"
)

func smallGeometry() layout.Geometry {
	return layout.Geometry{SectorSize: 512, TotalSectors: 256, MaxFiles: 16, MaxSectorsPerFile: 4, MaxOpenFiles: 4}
}

func TestCreateThenBootThenOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.userfs")
	g := smallGeometry()

	d, err := Create(path, g)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fs, err := d.Boot(g)
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if err := fs.FileCreate("/hello.txt"); err != nil {
		t.Fatalf("FileCreate: %v", err)
	}
	fd, err := fs.FileOpen("/hello.txt")
	if err != nil {
		t.Fatalf("FileOpen: %v", err)
	}
	if _, err := fs.FileWrite(fd, []byte("hello")); err != nil {
		t.Fatalf("FileWrite: %v", err)
	}
	if err := fs.FileClose(fd); err != nil {
		t.Fatalf("FileClose: %v", err)
	}
	if err := fs.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fs2, err := reopened.Boot(g)
	if err != nil {
		t.Fatalf("reopen Boot: %v", err)
	}
	fd2, err := fs2.FileOpen("/hello.txt")
	if err != nil {
		t.Fatalf("reopen FileOpen: %v", err)
	}
	buf := make([]byte, 16)
	n, err := fs2.FileRead(fd2, buf)
	if err != nil {
		t.Fatalf("reopen FileRead: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("FileRead = %q, want %q", buf[:n], "hello")
	}
}

func TestCreateRejectsExistingPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.userfs")
	g := smallGeometry()
	d, err := Create(path, g)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := d.Boot(g); err != nil {
		t.Fatalf("Boot (which creates the backing file): %v", err)
	}

	_, err = Create(path, g)
	if err == nil {
		t.Fatalf("expected second Create to fail now that the backing file exists")
	}
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestOpenRejectsMissingPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.img")); err == nil {
		t.Fatalf("expected error opening a missing path")
	}
}

func TestCreateRejectsInvalidGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.userfs")
	bad := smallGeometry()
	bad.SectorSize = 0
	if _, err := Create(path, bad); err == nil {
		t.Fatalf("expected error for invalid geometry")
	}
}
