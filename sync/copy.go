// Package sync copies a host directory tree (or any io/fs.FS) into a booted
// filesystem.FileSystem, and verifies two fs.FS trees are identical.
package sync

import (
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/oss-userfs/userfs/filesystem"
)

// excludedPaths are skipped by CopyFileSystem.
var excludedPaths = map[string]bool{
	"lost+found": true,
	".DS_Store":  true,
}

// CopyFileSystem copies every regular file and directory from src into dst,
// preserving structure. dst must already be booted.
func CopyFileSystem(src fs.FS, dst *filesystem.FileSystem) error {
	return copyDir(src, dst, ".")
}

func copyDir(src fs.FS, dst *filesystem.FileSystem, dir string) error {
	entries, err := fs.ReadDir(src, dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if excludedPaths[name] {
			continue
		}

		p := name
		if dir != "." {
			p = path.Join(dir, name)
		}
		target := "/" + p

		if entry.IsDir() {
			if err := dst.DirCreate(target); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			if err := copyDir(src, dst, p); err != nil {
				return fmt.Errorf("copy dir %s: %w", p, err)
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := copyOneFile(src, dst, p, target); err != nil {
			return fmt.Errorf("copy file %s: %w", p, err)
		}
	}

	return nil
}

func copyOneFile(src fs.FS, dst *filesystem.FileSystem, srcPath, dstPath string) error {
	in, err := src.Open(srcPath)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := dst.FileCreate(dstPath); err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}
	fd, err := dst.FileOpen(dstPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dstPath, err)
	}
	defer func() { _ = dst.FileClose(fd) }()

	buf := make([]byte, 32*1024)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := dst.FileWrite(fd, buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	return nil
}
