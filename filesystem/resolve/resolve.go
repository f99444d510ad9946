// Package resolve implements absolute path parsing and resolution against
// the inode/dirent tree (C6).
package resolve

import (
	"fmt"
	"strings"

	"github.com/oss-userfs/userfs/filesystem/inode"
)

// RootInode is the fixed inode number of the root directory.
const RootInode = 0

// Result is the outcome of resolving a path: the parent directory's inode
// number, the final component's inode number (-1 if it does not exist),
// and the final component's name (needed by the create path to know what
// to call the new dirent).
type Result struct {
	Parent   int32
	Child    int32
	LastName string
}

// Split splits path on '/', collapsing consecutive separators and
// dropping empty leading/trailing components, exactly as spec.md §4.4
// requires ("consecutive separators as one").
func Split(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidName reports whether name satisfies the filename grammar: letters,
// digits, '.', '-', '_' only; length in [1, maxName-1] (room for the
// terminator).
func ValidName(name string, maxName int) bool {
	if len(name) < 1 || len(name) > maxName-1 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// Loader is the narrow slice of the inode table used during resolution.
type Loader interface {
	Load(c *inode.Cache, n int) (inode.Inode, error)
}

// Finder is the narrow slice of directory lookup used during resolution.
type Finder interface {
	Find(dir inode.Inode, name string) (int32, bool)
}

// Resolve walks path (which must begin with "/") from the root, one
// component at a time, classifying the outcome per spec.md §4.4:
//
//   - "/" alone: Parent=Child=0 (root is self-rooted for deletion guards).
//   - ".../existing/new": Parent=inode(existing), Child=-1, LastName="new".
//   - ".../existing/found": Parent=inode(existing), Child=inode(found).
//   - any missing intermediate component, non-directory step, illegal
//     name, or read error: returns a non-nil error.
func Resolve(table Loader, dirs Finder, path string, maxName int) (Result, error) {
	if !strings.HasPrefix(path, "/") {
		return Result{}, fmt.Errorf("path %q is not absolute", path)
	}

	parts := Split(path)
	if len(parts) == 0 {
		return Result{Parent: RootInode, Child: RootInode, LastName: ""}, nil
	}

	for _, p := range parts {
		if !ValidName(p, maxName) {
			return Result{}, fmt.Errorf("illegal filename component %q", p)
		}
	}

	var cache inode.Cache
	parent := int32(RootInode)
	for i, name := range parts {
		parentInode, err := table.Load(&cache, int(parent))
		if err != nil {
			return Result{}, fmt.Errorf("reading parent inode %d: %w", parent, err)
		}
		if parentInode.Type != inode.KindDir {
			return Result{}, fmt.Errorf("component before %q is not a directory", name)
		}

		child, found := dirs.Find(parentInode, name)
		last := i == len(parts)-1

		switch {
		case last:
			if !found {
				return Result{Parent: parent, Child: -1, LastName: name}, nil
			}
			return Result{Parent: parent, Child: child, LastName: name}, nil
		case !found:
			return Result{}, fmt.Errorf("path component %q does not exist", name)
		default:
			parent = child
		}
	}
	// unreachable: the loop above always returns on the last component
	return Result{}, fmt.Errorf("internal error resolving %q", path)
}
