// Package mem provides an in-memory backend.Storage backed by a growable
// byte slice. sector.Device's LoadStorage and SaveStorage accept it;
// FileSystem.Boot takes a host file path and does not use it, and the
// module's own tests use temporary host files.
package mem

import (
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/oss-userfs/userfs/backend"
)

type storage struct {
	data *[]byte
	pos  int64
}

// New creates a backend.Storage backed by an in-memory byte slice of the
// given size.
func New(size int64) backend.Storage {
	buf := make([]byte, size)
	return &storage{data: &buf}
}

func (s *storage) Stat() (fs.FileInfo, error) {
	return memInfo{size: int64(len(*s.data))}, nil
}

func (s *storage) Read(b []byte) (int, error) {
	n, err := s.ReadAt(b, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *storage) ReadAt(p []byte, off int64) (int, error) {
	data := *s.data
	if off < 0 || off >= int64(len(data)) {
		if off == int64(len(data)) {
			return 0, io.EOF
		}
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *storage) WriteAt(p []byte, off int64) (int, error) {
	data := *s.data
	end := off + int64(len(p))
	if end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
		*s.data = data
	}
	copy(data[off:end], p)
	return len(p), nil
}

func (s *storage) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(*s.data)) + offset
	}
	return s.pos, nil
}

func (s *storage) Close() error {
	return nil
}

func (s *storage) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

func (s *storage) Writable() (backend.WritableFile, error) {
	return s, nil
}

type memInfo struct {
	size int64
}

func (m memInfo) Name() string       { return "mem" }
func (m memInfo) Size() int64        { return m.size }
func (m memInfo) Mode() fs.FileMode  { return 0o600 }
func (m memInfo) ModTime() time.Time { return time.Time{} }
func (m memInfo) IsDir() bool        { return false }
func (m memInfo) Sys() interface{}   { return nil }
