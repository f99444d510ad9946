package sync

import (
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/oss-userfs/userfs/filesystem"
	"github.com/oss-userfs/userfs/util/layout"
)

func bootTemp(t *testing.T) *filesystem.FileSystem {
	t.Helper()
	f := filesystem.New(layout.Default)
	if err := f.Boot(filepath.Join(t.TempDir(), "image.userfs")); err != nil {
		t.Fatalf("boot: %v", err)
	}
	return f
}

func readAll(t *testing.T, f *filesystem.FileSystem, path string) []byte {
	t.Helper()
	fd, err := f.FileOpen(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.FileClose(fd)
	buf := make([]byte, 4096)
	n, err := f.FileRead(fd, buf)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return buf[:n]
}

func TestCopyFileSystem_Basic(t *testing.T) {
	src := fstest.MapFS{
		"foo.txt": {Data: []byte("hello")},
		"dir":     {Mode: fs.ModeDir},
		"dir/bar": {Data: []byte("world")},
	}
	dst := bootTemp(t)
	if err := CopyFileSystem(src, dst); err != nil {
		t.Fatalf("CopyFileSystem failed: %v", err)
	}

	if got := string(readAll(t, dst, "/foo.txt")); got != "hello" {
		t.Errorf("foo.txt = %q, want %q", got, "hello")
	}
	if got := string(readAll(t, dst, "/dir/bar")); got != "world" {
		t.Errorf("dir/bar = %q, want %q", got, "world")
	}
	isDir, _, err := dst.Stat("/dir")
	if err != nil || !isDir {
		t.Errorf("expected /dir to exist as a directory, isDir=%v err=%v", isDir, err)
	}
}

func TestCopyFileSystem_SkipNonRegular(t *testing.T) {
	src := fstest.MapFS{
		"sl": {Data: []byte(""), Mode: fs.ModeSymlink},
	}
	dst := bootTemp(t)
	if err := CopyFileSystem(src, dst); err != nil {
		t.Fatalf("CopyFileSystem failed: %v", err)
	}
	if _, _, err := dst.Stat("/sl"); err == nil {
		t.Errorf("expected symlink entry to be skipped, but it was copied")
	}
}
