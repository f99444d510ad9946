package filesystem

import "errors"

// Errno is the process-wide last-error taxonomy described in spec.md §7.
// Every failing API call sets one of these on the FileSystem it was called
// against; a thin package-level facade (LastError, below) re-exposes the
// most recent one from a default instance for source-compatible callers
// that want a single global, matching the reference implementation's
// osErrno.
type Errno int

const (
	// ENone means no error is outstanding.
	ENone Errno = iota
	// EGeneral covers boot/sync failures, underlying device or host-file
	// errors, and structural mismatches (bad magic, wrong size).
	EGeneral
	// ECreate covers file/directory creation failures: bad path, parent
	// not a directory, name collision, or an exhausted inode bitmap.
	ECreate
	// ENoSuchFile means a path naming a file does not resolve to an
	// existing child.
	ENoSuchFile
	// ENoSuchDir means a path naming a directory does not resolve to an
	// existing child.
	ENoSuchDir
	// EFileInUse means an unlink was attempted against an open file.
	EFileInUse
	// EFileTooBig means a write would exceed MaxSectorsPerFile*SectorSize.
	EFileTooBig
	// ENoSpace means the data-block bitmap cannot satisfy an allocation.
	ENoSpace
	// ETooManyOpenFiles means the open-file table is full.
	ETooManyOpenFiles
	// EBadFD means a descriptor is out of range, not open, or no longer
	// references a live inode.
	EBadFD
	// ESeekOutOfBounds means a seek offset is negative or past the
	// current file size.
	ESeekOutOfBounds
	// EDirNotEmpty means a directory unlink was attempted against a
	// directory that still has live entries.
	EDirNotEmpty
	// ERootDir means an unlink was attempted against the root directory.
	ERootDir
	// EBufferTooSmall means a dir_read-equivalent call's buffer is
	// smaller than the directory's byte size.
	EBufferTooSmall
)

func (e Errno) String() string {
	switch e {
	case ENone:
		return "no error"
	case EGeneral:
		return "general filesystem error"
	case ECreate:
		return "create failed"
	case ENoSuchFile:
		return "no such file"
	case ENoSuchDir:
		return "no such directory"
	case EFileInUse:
		return "file is open"
	case EFileTooBig:
		return "file too big"
	case ENoSpace:
		return "no space left on device"
	case ETooManyOpenFiles:
		return "too many open files"
	case EBadFD:
		return "bad file descriptor"
	case ESeekOutOfBounds:
		return "seek out of bounds"
	case EDirNotEmpty:
		return "directory not empty"
	case ERootDir:
		return "cannot remove root directory"
	case EBufferTooSmall:
		return "buffer too small"
	default:
		return "unknown error"
	}
}

func (e Errno) Error() string {
	return e.String()
}

// errnoError wraps an Errno together with the underlying cause, so callers
// that use errors.Is/errors.As can recover both the taxonomy code and the
// root cause, while String()/Error() on the bare Errno stays stable for
// source-compatible callers that only switch on the code.
type errnoError struct {
	errno Errno
	cause error
}

func (e *errnoError) Error() string {
	if e.cause == nil {
		return e.errno.Error()
	}
	return e.errno.Error() + ": " + e.cause.Error()
}

func (e *errnoError) Unwrap() error {
	return e.cause
}

func (e *errnoError) Is(target error) bool {
	var other Errno
	if errors.As(target, &other) {
		return other == e.errno
	}
	return false
}

func wrapErrno(errno Errno, cause error) error {
	return &errnoError{errno: errno, cause: cause}
}

// ErrnoOf extracts the Errno code from an error returned by this package,
// returning ENone if err is nil or carries no Errno.
func ErrnoOf(err error) Errno {
	if err == nil {
		return ENone
	}
	var ee *errnoError
	if errors.As(err, &ee) {
		return ee.errno
	}
	var en Errno
	if errors.As(err, &en) {
		return en
	}
	return EGeneral
}

// DefaultFS is the process-wide instance read by the package-level
// LastError facade, for source-compatible callers that want a single
// global error slot. This package never assigns it; callers set it to the
// FileSystem they boot. LastError is the only package-level function that
// uses it.
var DefaultFS *FileSystem

// LastError returns the Errno set by the most recent failing call against
// DefaultFS.
func LastError() Errno {
	if DefaultFS == nil {
		return ENone
	}
	return DefaultFS.LastError()
}
