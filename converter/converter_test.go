package converter

import (
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/oss-userfs/userfs/filesystem"
	"github.com/oss-userfs/userfs/util/layout"
)

func bootTemp(t *testing.T) *filesystem.FileSystem {
	t.Helper()
	g := layout.Default
	path := filepath.Join(t.TempDir(), "image.userfs")
	f := filesystem.New(g)
	if err := f.Boot(path); err != nil {
		t.Fatalf("boot: %v", err)
	}
	return f
}

func TestConverterReadDirAndOpen(t *testing.T) {
	f := bootTemp(t)
	if err := f.DirCreate("/docs"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := f.FileCreate("/docs/readme.txt"); err != nil {
		t.Fatalf("create: %v", err)
	}
	fd, err := f.FileOpen("/docs/readme.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.FileWrite(fd, []byte("hello world")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.FileClose(fd); err != nil {
		t.Fatalf("close: %v", err)
	}

	wrapped := FS(f)

	entries, err := fs.ReadDir(wrapped, "docs")
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "readme.txt" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	file, err := wrapped.Open("docs/readme.txt")
	if err != nil {
		t.Fatalf("open via fs.FS: %v", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("unexpected content: %q", data)
	}
}
