// Package converter adapts a booted filesystem.FileSystem to the standard
// library's io/fs.FS, so callers can point generic tooling (text/template,
// http.FileServer, archive/zip writers, and the like) at a userfs image
// without depending on this module's own API.
package converter

import (
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/oss-userfs/userfs/filesystem"
)

type fsCompatible struct {
	fs *filesystem.FileSystem
}

// FS wraps a booted FileSystem as an io/fs.FS.
func FS(f *filesystem.FileSystem) fs.FS {
	return &fsCompatible{fs: f}
}

func (a *fsCompatible) Open(name string) (fs.File, error) {
	full := "/" + name
	if name == "." {
		full = "/"
	}
	isDir, size, err := a.fs.Stat(full)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if isDir {
		entries, err := a.fs.ReadDir(full)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &dirFile{name: path.Base(name), entries: entries}, nil
	}

	fd, err := a.fs.FileOpen(full)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &regularFile{fs: a.fs, fd: fd, name: path.Base(name), size: size}, nil
}

// regularFile adapts a userfs file descriptor to fs.File.
type regularFile struct {
	fs   *filesystem.FileSystem
	fd   int
	name string
	size int64
}

func (f *regularFile) Stat() (fs.FileInfo, error) {
	return fileInfo{name: f.name, size: f.size}, nil
}

func (f *regularFile) Read(p []byte) (int, error) {
	n, err := f.fs.FileRead(f.fd, p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *regularFile) Close() error {
	return f.fs.FileClose(f.fd)
}

// dirFile adapts a ReadDir result to fs.ReadDirFile, serving fs.WalkDir and
// similar stdlib tooling.
type dirFile struct {
	name    string
	entries []filesystem.DirEntry
	pos     int
}

func (d *dirFile) Stat() (fs.FileInfo, error) {
	return fileInfo{name: d.name, isDir: true}, nil
}

func (d *dirFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *dirFile) Close() error { return nil }

func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.pos >= len(d.entries) && n > 0 {
		return nil, io.EOF
	}
	remaining := d.entries[d.pos:]
	if n > 0 && n < len(remaining) {
		remaining = remaining[:n]
	}
	out := make([]fs.DirEntry, len(remaining))
	for i, e := range remaining {
		out[i] = dirEntry{e}
	}
	d.pos += len(remaining)
	return out, nil
}

type dirEntry struct {
	e filesystem.DirEntry
}

func (e dirEntry) Name() string { return e.e.Name }
func (e dirEntry) IsDir() bool  { return e.e.IsDir }

func (e dirEntry) Type() fs.FileMode {
	if e.e.IsDir {
		return fs.ModeDir
	}
	return 0
}

func (e dirEntry) Info() (fs.FileInfo, error) {
	return fileInfo{name: e.e.Name, isDir: e.e.IsDir}, nil
}

type fileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (i fileInfo) Name() string { return i.name }
func (i fileInfo) Size() int64  { return i.size }

func (i fileInfo) Mode() fs.FileMode {
	if i.isDir {
		return fs.ModeDir | 0755
	}
	return 0644
}

func (i fileInfo) ModTime() time.Time { return time.Time{} }
func (i fileInfo) IsDir() bool        { return i.isDir }
func (i fileInfo) Sys() interface{}   { return nil }
