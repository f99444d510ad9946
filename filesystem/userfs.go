// Package filesystem implements the user-space block-structured
// filesystem's public API: boot/sync, file create/unlink/open/close/
// read/write/seek, and directory create/unlink/read/size (C7, C8, C9,
// C10), composing the inode, dirent, resolve, and bitmap building blocks.
package filesystem

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oss-userfs/userfs/backend/sector"
	"github.com/oss-userfs/userfs/filesystem/dirent"
	"github.com/oss-userfs/userfs/filesystem/inode"
	"github.com/oss-userfs/userfs/filesystem/resolve"
	"github.com/oss-userfs/userfs/util/bitmap"
	"github.com/oss-userfs/userfs/util/layout"
)

// MaxName is the maximum filename length, including the terminator.
const MaxName = 16

// MaxPath is the maximum path length, including the terminator.
const MaxPath = 256

// openFile is one entry of the open-file table (C8): the live inode,
// its cached size, and the read/write cursor. Inode 0 is never stored
// here (it is the root, and the root is always a directory); an entry
// with Inode <= 0 is free.
type openFile struct {
	Inode int32
	Size  int32
	Pos   int32
}

// FileSystem is a single mounted instance of the filesystem: the sector
// device, the live in-memory bitmaps, the inode table, and the open-file
// table. Per spec.md §9, process-wide mutable state (the error slot, the
// open-file table, the backing path) is bundled into this explicit value
// rather than held in package globals; DefaultFS in errors.go offers a
// thin global-facade wrapper for callers who want that instead.
type FileSystem struct {
	geometry layout.Geometry
	regions  layout.Regions

	dev         *sector.Device
	inodeBitmap *bitmap.Bitmap
	dataBitmap  *bitmap.Bitmap
	inodes      *inode.Table
	dirs        *dirent.Dir

	openFiles []openFile

	backingPath string
	lastError   Errno

	InstanceID uuid.UUID
	log        *logrus.Entry
}

// New constructs an un-booted FileSystem for the given geometry. Boot must
// be called before any other operation.
func New(g layout.Geometry) *FileSystem {
	return &FileSystem{
		geometry: g,
		regions:  layout.Regions(g),
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
}

// SetLogger overrides the logrus entry used for debug/trace diagnostics,
// the Go-native replacement for LibFS.c's FSDEBUG/dprintf compile-time
// toggle: callers control verbosity via the entry's level instead of a
// recompile.
func (fs *FileSystem) SetLogger(log *logrus.Entry) {
	fs.log = log
}

// LastError returns the Errno set by the most recently failed call.
func (fs *FileSystem) LastError() Errno {
	return fs.lastError
}

func (fs *FileSystem) fail(errno Errno, cause error) error {
	fs.lastError = errno
	err := wrapErrno(errno, cause)
	fs.log.WithError(err).WithField("errno", errno.String()).Debug("operation failed")
	return err
}

func (fs *FileSystem) ok() {
	fs.lastError = ENone
}

// ---- boot / sync (C10) ----

// Boot loads backingPath into memory, formatting a fresh filesystem if the
// file does not yet exist, or validating an existing one's size and magic
// number. It always resets the open-file table.
func (fs *FileSystem) Boot(backingPath string) error {
	if err := fs.geometry.Validate(); err != nil {
		return fs.fail(EGeneral, err)
	}

	fs.InstanceID = uuid.New()
	fs.log = fs.log.WithField("instance", fs.InstanceID.String())
	fs.backingPath = backingPath
	fs.dev = sector.New(fs.geometry)
	fs.openFiles = make([]openFile, fs.geometry.MaxOpenFiles)

	existed, err := fs.dev.Load(backingPath)
	if err != nil {
		return fs.fail(EGeneral, err)
	}

	if !existed {
		fs.log.WithFields(logrus.Fields{
			"path":         backingPath,
			"totalSectors": fs.geometry.TotalSectors,
			"maxFiles":     fs.geometry.MaxFiles,
			"dataStart":    fs.regions.DataBlockStart,
		}).Info("formatting new filesystem")
		if err := fs.format(); err != nil {
			return fs.fail(EGeneral, err)
		}
		if err := fs.dev.Save(backingPath); err != nil {
			return fs.fail(EGeneral, err)
		}
	} else {
		if fs.dev.ReadMagic() != layout.Magic {
			return fs.fail(EGeneral, fmt.Errorf("bad magic number in superblock of %s", backingPath))
		}
		fs.inodeBitmap = readBitmapRegion(fs.dev, fs.regions.InodeBitmapStart, fs.regions.InodeBitmapCount, fs.geometry.SectorSize)
		fs.dataBitmap = readBitmapRegion(fs.dev, fs.regions.DataBitmapStart, fs.regions.DataBitmapCount, fs.geometry.SectorSize)
		fs.log.WithField("path", backingPath).Info("booted existing filesystem")
	}

	fs.inodes = inode.NewTable(fs.dev, fs.geometry)
	fs.dirs = dirent.New(fs.dev, fs.geometry, fs.dataBitmap)
	fs.ok()
	return nil
}

func (fs *FileSystem) format() error {
	fs.dev.WriteMagic(layout.Magic)

	fs.inodeBitmap = bitmap.NewBytes(fs.regions.InodeBitmapCount * fs.geometry.SectorSize)
	if err := fs.inodeBitmap.Set(resolve.RootInode); err != nil {
		return err
	}
	if err := writeBitmapRegion(fs.dev, fs.inodeBitmap, fs.regions.InodeBitmapStart, fs.regions.InodeBitmapCount, fs.geometry.SectorSize); err != nil {
		return err
	}

	fs.dataBitmap = bitmap.NewBytes(fs.regions.DataBitmapCount * fs.geometry.SectorSize)
	for i := 0; i < fs.regions.DataBlockStart; i++ {
		if err := fs.dataBitmap.Set(i); err != nil {
			return err
		}
	}
	if err := writeBitmapRegion(fs.dev, fs.dataBitmap, fs.regions.DataBitmapStart, fs.regions.DataBitmapCount, fs.geometry.SectorSize); err != nil {
		return err
	}

	table := inode.NewTable(fs.dev, fs.geometry)
	if err := table.ZeroAll(); err != nil {
		return err
	}
	root := inode.New(inode.KindDir, fs.geometry)
	if err := table.Store(nil, resolve.RootInode, root); err != nil {
		return err
	}
	return nil
}

// DumpSector returns a copy of one raw sector of the backing image, for
// diagnostic tooling (e.g. a CLI hex-dump command).
func (fs *FileSystem) DumpSector(idx int) ([]byte, error) {
	buf := make([]byte, fs.geometry.SectorSize)
	if err := fs.dev.ReadSector(idx, buf); err != nil {
		return nil, fs.fail(EGeneral, err)
	}
	fs.ok()
	return buf, nil
}

// Sync flushes the in-memory image to the backing file.
func (fs *FileSystem) Sync() error {
	if fs.dev == nil {
		return fs.fail(EGeneral, fmt.Errorf("filesystem is not booted"))
	}
	if err := fs.dev.Save(fs.backingPath); err != nil {
		return fs.fail(EGeneral, err)
	}
	fs.ok()
	return nil
}

func readBitmapRegion(dev *sector.Device, start, count, sectorSize int) *bitmap.Bitmap {
	buf := make([]byte, count*sectorSize)
	for i := 0; i < count; i++ {
		_ = dev.ReadSector(start+i, buf[i*sectorSize:(i+1)*sectorSize])
	}
	return bitmap.FromBytes(buf)
}

func writeBitmapRegion(dev *sector.Device, bm *bitmap.Bitmap, start, count, sectorSize int) error {
	data := bm.ToBytes()
	for i := 0; i < count; i++ {
		if err := dev.WriteSector(start+i, data[i*sectorSize:(i+1)*sectorSize]); err != nil {
			return err
		}
	}
	return nil
}

func persistBitmapBits(dev *sector.Device, bm *bitmap.Bitmap, regionStart, sectorSize int, bits []int) error {
	touched := map[int]bool{}
	for _, bit := range bits {
		touched[(bit/8)/sectorSize] = true
	}
	data := bm.ToBytes()
	for rel := range touched {
		sec := regionStart + rel
		chunk := data[rel*sectorSize : (rel+1)*sectorSize]
		if err := dev.WriteSector(sec, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileSystem) persistInodeBitmapBit(bit int) error {
	return persistBitmapBits(fs.dev, fs.inodeBitmap, fs.regions.InodeBitmapStart, fs.geometry.SectorSize, []int{bit})
}

func (fs *FileSystem) persistDataBitmapBits(bits []int) error {
	return persistBitmapBits(fs.dev, fs.dataBitmap, fs.regions.DataBitmapStart, fs.geometry.SectorSize, bits)
}

// ---- path resolution glue (C6) ----

func (fs *FileSystem) resolve(path string) (resolve.Result, error) {
	if len(path) > MaxPath-1 {
		return resolve.Result{}, fmt.Errorf("path is longer than %d bytes", MaxPath-1)
	}
	return resolve.Resolve(fs.inodes, fs.dirs, path, MaxName)
}

// ---- create / remove protocol (C7) ----

func (fs *FileSystem) createNode(kind inode.Kind, path string) error {
	res, err := fs.resolve(path)
	if err != nil {
		return fs.fail(ECreate, err)
	}
	if res.Child >= 0 {
		return fs.fail(ECreate, fmt.Errorf("%s already exists", path))
	}
	if res.LastName == "" {
		return fs.fail(ECreate, fmt.Errorf("%s is the root directory", path))
	}

	loc := fs.inodeBitmap.FirstFree(fs.regions.InodeBitmapBits)
	if loc < 0 {
		return fs.fail(ECreate, fmt.Errorf("no free inodes"))
	}
	if err := fs.inodeBitmap.Set(loc); err != nil {
		return fs.fail(ECreate, err)
	}
	if err := fs.persistInodeBitmapBit(loc); err != nil {
		return fs.fail(ECreate, err)
	}

	newInode := inode.New(kind, fs.geometry)
	if err := fs.inodes.Store(nil, loc, newInode); err != nil {
		return fs.fail(ECreate, err)
	}

	parent, err := fs.inodes.Load(nil, int(res.Parent))
	if err != nil {
		return fs.fail(ECreate, err)
	}
	allocated, err := fs.dirs.Append(&parent, res.LastName, int32(loc))
	if err != nil {
		return fs.fail(ECreate, err)
	}
	if allocated >= 0 {
		if err := fs.persistDataBitmapBits([]int{allocated}); err != nil {
			return fs.fail(ECreate, err)
		}
	}
	if err := fs.inodes.Store(nil, int(res.Parent), parent); err != nil {
		return fs.fail(ECreate, err)
	}

	fs.log.WithFields(logrus.Fields{"path": path, "inode": loc, "kind": kind}).Debug("created node")
	fs.ok()
	return nil
}

func (fs *FileSystem) removeNode(kind inode.Kind, parentInode, childInode int32) error {
	child, err := fs.inodes.Load(nil, int(childInode))
	if err != nil {
		return fmt.Errorf("reading inode %d: %w", childInode, err)
	}
	if child.Type != kind {
		return fmt.Errorf("inode %d is not the expected type", childInode)
	}
	if kind == inode.KindDir {
		for _, d := range child.Data {
			if d != 0 {
				return fmt.Errorf("%w", errDirNotEmpty)
			}
		}
	}

	// Release the child's data blocks (file contents or, defensively, any
	// stray directory data block) back to the bitmap. The reference
	// implementation does not do this for files; spec.md §4.6 and §9 flag
	// it as an implementer SHOULD to keep "every referenced sector has its
	// bitmap bit set" an invariant of live inodes only.
	entries := child.DataEntries(fs.geometry)
	var freed []int
	for i := 0; i < entries; i++ {
		if child.Data[i] != 0 {
			if err := fs.dataBitmap.Clear(int(child.Data[i])); err != nil {
				return err
			}
			freed = append(freed, int(child.Data[i]))
		}
	}
	if len(freed) > 0 {
		if err := fs.persistDataBitmapBits(freed); err != nil {
			return err
		}
	}

	if err := fs.inodeBitmap.Clear(int(childInode)); err != nil {
		return err
	}
	if err := fs.persistInodeBitmapBit(int(childInode)); err != nil {
		return err
	}

	if err := fs.inodes.Store(nil, int(childInode), inode.New(kind, fs.geometry)); err != nil {
		return err
	}

	parent, err := fs.inodes.Load(nil, int(parentInode))
	if err != nil {
		return err
	}
	released, err := fs.dirs.Remove(&parent, childInode)
	if err != nil {
		return err
	}
	if len(released) > 0 {
		if err := fs.persistDataBitmapBits(released); err != nil {
			return err
		}
	}
	return fs.inodes.Store(nil, int(parentInode), parent)
}

var errDirNotEmpty = fmt.Errorf("directory not empty")

// ---- open-file table (C8) ----

func (fs *FileSystem) isOpen(childInode int32) bool {
	for _, of := range fs.openFiles {
		if of.Inode == childInode {
			return true
		}
	}
	return false
}

func (fs *FileSystem) allocFD() int {
	for i, of := range fs.openFiles {
		if of.Inode <= 0 {
			return i
		}
	}
	return -1
}

// ---- file API ----

// FileCreate creates a new, empty regular file at path.
func (fs *FileSystem) FileCreate(path string) error {
	return fs.createNode(inode.KindFile, path)
}

// FileUnlink removes the regular file at path. It fails if the file is
// currently open.
func (fs *FileSystem) FileUnlink(path string) error {
	res, err := fs.resolve(path)
	if err != nil || res.Child < 0 {
		return fs.fail(ENoSuchFile, fmt.Errorf("%s does not exist", path))
	}
	if fs.isOpen(res.Child) {
		return fs.fail(EFileInUse, fmt.Errorf("%s is open", path))
	}
	if err := fs.removeNode(inode.KindFile, res.Parent, res.Child); err != nil {
		return fs.fail(ENoSuchFile, err)
	}
	fs.ok()
	return nil
}

// FileOpen opens the regular file at path and returns a descriptor.
func (fs *FileSystem) FileOpen(path string) (int, error) {
	res, err := fs.resolve(path)
	if err != nil || res.Child < 0 {
		return -1, fs.fail(ENoSuchFile, fmt.Errorf("%s does not exist", path))
	}
	in, err := fs.inodes.Load(nil, int(res.Child))
	if err != nil {
		return -1, fs.fail(EGeneral, err)
	}
	if in.Type != inode.KindFile {
		return -1, fs.fail(EGeneral, fmt.Errorf("%s is not a regular file", path))
	}
	fd := fs.allocFD()
	if fd < 0 {
		return -1, fs.fail(ETooManyOpenFiles, fmt.Errorf("open-file table is full"))
	}
	fs.openFiles[fd] = openFile{Inode: res.Child, Size: in.Size, Pos: 0}
	fs.ok()
	return fd, nil
}

// FileClose releases descriptor fd.
func (fs *FileSystem) FileClose(fd int) error {
	if _, err := fs.fdAt(fd); err != nil {
		return fs.fail(EBadFD, err)
	}
	fs.openFiles[fd] = openFile{}
	fs.ok()
	return nil
}

func (fs *FileSystem) fdAt(fd int) (*openFile, error) {
	if fd < 0 || fd >= len(fs.openFiles) {
		return nil, fmt.Errorf("fd %d out of range", fd)
	}
	if fs.openFiles[fd].Inode <= 0 {
		return nil, fmt.Errorf("fd %d is not open", fd)
	}
	return &fs.openFiles[fd], nil
}

// FileSeek sets fd's cursor to off, which must be within [0, size].
func (fs *FileSystem) FileSeek(fd int, off int) (int, error) {
	of, err := fs.fdAt(fd)
	if err != nil {
		return -1, fs.fail(EBadFD, err)
	}
	if off < 0 || off > int(of.Size) {
		return -1, fs.fail(ESeekOutOfBounds, fmt.Errorf("offset %d out of [0,%d]", off, of.Size))
	}
	of.Pos = int32(off)
	fs.ok()
	return off, nil
}

// FileRead reads up to len(buf) bytes from fd starting at its cursor,
// returning the actual number read (0 at end of file).
func (fs *FileSystem) FileRead(fd int, buf []byte) (int, error) {
	of, err := fs.fdAt(fd)
	if err != nil {
		return 0, fs.fail(EBadFD, err)
	}
	in, err := fs.inodes.Load(nil, int(of.Inode))
	if err != nil {
		return 0, fs.fail(EBadFD, err)
	}

	remaining := int(of.Size) - int(of.Pos)
	if remaining <= 0 {
		fs.ok()
		return 0, nil
	}
	toRead := len(buf)
	if toRead > remaining {
		toRead = remaining
	}

	sectorSize := fs.geometry.SectorSize
	read := 0
	pos := int(of.Pos)
	for read < toRead {
		blockIdx := pos / sectorSize
		inBlockOff := pos % sectorSize
		sec := in.Data[blockIdx]
		sbuf := make([]byte, sectorSize)
		if err := fs.dev.ReadSector(int(sec), sbuf); err != nil {
			return read, fs.fail(EGeneral, err)
		}
		n := sectorSize - inBlockOff
		if n > toRead-read {
			n = toRead - read
		}
		copy(buf[read:read+n], sbuf[inBlockOff:inBlockOff+n])
		read += n
		pos += n
	}

	of.Pos += int32(read)
	fs.ok()
	return read, nil
}

// FileWrite writes all of buf to fd at its cursor, growing the file and
// allocating new data blocks as needed, and advances the cursor. Per
// spec.md §4.8, writes are all-or-nothing: either every byte of buf is
// written, or none are and an error is returned.
func (fs *FileSystem) FileWrite(fd int, buf []byte) (int, error) {
	of, err := fs.fdAt(fd)
	if err != nil {
		return 0, fs.fail(EBadFD, err)
	}
	in, err := fs.inodes.Load(nil, int(of.Inode))
	if err != nil {
		return 0, fs.fail(EBadFD, err)
	}

	n := len(buf)
	pos := int(of.Pos)
	maxBytes := fs.geometry.MaxSectorsPerFile * fs.geometry.SectorSize
	if pos+n > maxBytes {
		return 0, fs.fail(EFileTooBig, fmt.Errorf("write would exceed max file size %d", maxBytes))
	}

	sectorSize := fs.geometry.SectorSize
	lastAllocatedBlock := ceilDiv(int(in.Size), sectorSize)
	endBlock := ceilDiv(pos+n, sectorSize)

	if endBlock > lastAllocatedBlock {
		need := endBlock - lastAllocatedBlock
		locs, err := fs.dataBitmap.AllocateN(fs.regions.DataBitmapBits, need)
		if err != nil {
			return 0, fs.fail(ENoSpace, err)
		}
		if err := fs.dataBitmap.SetBits(locs); err != nil {
			return 0, fs.fail(EGeneral, err)
		}
		if err := fs.persistDataBitmapBits(locs); err != nil {
			return 0, fs.fail(EGeneral, err)
		}
		for i, loc := range locs {
			in.Data[lastAllocatedBlock+i] = uint32(loc)
		}
		fs.log.WithFields(logrus.Fields{"inode": of.Inode, "blocks": locs}).Debug("allocated data blocks")
	}

	written := 0
	p := pos
	for written < n {
		blockIdx := p / sectorSize
		inBlockOff := p % sectorSize
		sec := in.Data[blockIdx]
		sbuf := make([]byte, sectorSize)
		if inBlockOff != 0 || n-written < sectorSize {
			if err := fs.dev.ReadSector(int(sec), sbuf); err != nil {
				return 0, fs.fail(EGeneral, err)
			}
		}
		chunk := sectorSize - inBlockOff
		if chunk > n-written {
			chunk = n - written
		}
		copy(sbuf[inBlockOff:inBlockOff+chunk], buf[written:written+chunk])
		if err := fs.dev.WriteSector(int(sec), sbuf); err != nil {
			return 0, fs.fail(EGeneral, err)
		}
		written += chunk
		p += chunk
	}

	if pos+n > int(in.Size) {
		in.Size = int32(pos + n)
		of.Size = in.Size
	}
	if err := fs.inodes.Store(nil, int(of.Inode), in); err != nil {
		return 0, fs.fail(EGeneral, err)
	}
	of.Pos += int32(n)
	fs.ok()
	return n, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// ---- directory API ----

// DirCreate creates a new, empty directory at path.
func (fs *FileSystem) DirCreate(path string) error {
	return fs.createNode(inode.KindDir, path)
}

// DirUnlink removes the empty directory at path.
func (fs *FileSystem) DirUnlink(path string) error {
	res, err := fs.resolve(path)
	if err != nil {
		return fs.fail(ENoSuchDir, err)
	}
	if res.LastName == "" {
		return fs.fail(ERootDir, fmt.Errorf("cannot remove root directory"))
	}
	if res.Child < 0 {
		return fs.fail(ENoSuchDir, fmt.Errorf("%s does not exist", path))
	}
	if err := fs.removeNode(inode.KindDir, res.Parent, res.Child); err != nil {
		if errors.Is(err, errDirNotEmpty) {
			return fs.fail(EDirNotEmpty, err)
		}
		return fs.fail(ENoSuchDir, err)
	}
	fs.ok()
	return nil
}

// DirSize returns the byte size of the directory at path: 20 bytes per
// entry.
func (fs *FileSystem) DirSize(path string) (int, error) {
	target, err := fs.resolveDir(path)
	if err != nil {
		return -1, fs.fail(ENoSuchDir, err)
	}
	in, err := fs.inodes.Load(nil, int(target))
	if err != nil {
		return -1, fs.fail(ENoSuchDir, err)
	}
	fs.ok()
	return int(in.Size) * layout.DirentSize, nil
}

// resolveDir resolves path to the inode number of an existing directory,
// treating "/" as the root.
func (fs *FileSystem) resolveDir(path string) (int32, error) {
	res, err := fs.resolve(path)
	if err != nil {
		return -1, err
	}
	if res.LastName == "" {
		return resolve.RootInode, nil
	}
	if res.Child < 0 {
		return -1, fmt.Errorf("%s does not exist", path)
	}
	return res.Child, nil
}

// DirEntry is a decoded directory entry, used by ReadDir and by the
// fs.FS adapter in package converter.
type DirEntry struct {
	Name  string
	Inode int32
	IsDir bool
}

// ReadDir returns the decoded entries of the directory at path, resolving
// each child's type. Unlike DirRead it needs no caller-provided buffer and
// is the API of choice for in-process callers (as opposed to C-ABI-style
// buffer-filling callers).
func (fs *FileSystem) ReadDir(path string) ([]DirEntry, error) {
	target, err := fs.resolveDir(path)
	if err != nil {
		return nil, fs.fail(ENoSuchDir, err)
	}
	in, err := fs.inodes.Load(nil, int(target))
	if err != nil {
		return nil, fs.fail(ENoSuchDir, err)
	}

	var out []DirEntry
	err = fs.dirs.Scan(in, func(_ int, e dirent.Entry) error {
		child, err := fs.inodes.Load(nil, int(e.Child))
		if err != nil {
			return err
		}
		out = append(out, DirEntry{Name: e.Name, Inode: e.Child, IsDir: child.Type == inode.KindDir})
		return nil
	})
	if err != nil {
		return nil, fs.fail(EGeneral, err)
	}
	fs.ok()
	return out, nil
}

// Stat reports whether path exists, and if so whether it is a directory,
// and its size in bytes (entry count * DirentSize for a directory, byte
// length for a file).
func (fs *FileSystem) Stat(path string) (isDir bool, size int64, err error) {
	res, rerr := fs.resolve(path)
	if rerr != nil {
		return false, 0, fs.fail(ENoSuchFile, rerr)
	}
	var target int32
	if res.LastName == "" {
		target = resolve.RootInode
	} else if res.Child < 0 {
		return false, 0, fs.fail(ENoSuchFile, fmt.Errorf("%s does not exist", path))
	} else {
		target = res.Child
	}
	in, ierr := fs.inodes.Load(nil, int(target))
	if ierr != nil {
		return false, 0, fs.fail(EGeneral, ierr)
	}
	fs.ok()
	if in.Type == inode.KindDir {
		return true, int64(in.Size) * int64(layout.DirentSize), nil
	}
	return false, int64(in.Size), nil
}

// DirRead fills buf with every entry of the directory at path (each
// DirentSize bytes: name then child inode number) and returns the number
// of entries written. It fails if buf is smaller than DirSize(path).
func (fs *FileSystem) DirRead(path string, buf []byte) (int, error) {
	target, err := fs.resolveDir(path)
	if err != nil {
		return -1, fs.fail(ENoSuchDir, err)
	}

	in, err := fs.inodes.Load(nil, int(target))
	if err != nil {
		return -1, fs.fail(ENoSuchDir, err)
	}
	need := int(in.Size) * layout.DirentSize
	if len(buf) < need {
		return -1, fs.fail(EBufferTooSmall, fmt.Errorf("buffer of %d bytes too small for %d bytes", len(buf), need))
	}

	count := 0
	err = fs.dirs.Scan(in, func(idx int, e dirent.Entry) error {
		off := idx * layout.DirentSize
		nameBytes := make([]byte, layout.NameFieldSize)
		copy(nameBytes, e.Name)
		copy(buf[off:off+layout.NameFieldSize], nameBytes)
		buf[off+layout.NameFieldSize] = byte(e.Child)
		buf[off+layout.NameFieldSize+1] = byte(e.Child >> 8)
		buf[off+layout.NameFieldSize+2] = byte(e.Child >> 16)
		buf[off+layout.NameFieldSize+3] = byte(e.Child >> 24)
		count++
		return nil
	})
	if err != nil {
		return -1, fs.fail(EGeneral, err)
	}
	fs.ok()
	return count, nil
}
