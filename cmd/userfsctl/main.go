// Command userfsctl boots a userfs image and runs filesystem operations
// against it from the shell: mkfs, ls, cat, put, get, mkdir, rm, stat, dump.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oss-userfs/userfs/backend/file"
	"github.com/oss-userfs/userfs/filesystem"
	"github.com/oss-userfs/userfs/util"
	"github.com/oss-userfs/userfs/util/layout"
)

var (
	imagePath string
	verbose   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "userfsctl",
	Short: "Inspect and manipulate a userfs image from the shell",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&imagePath, "image", "i", "", "path to the backing image file (required)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("image")

	rootCmd.AddCommand(mkfsCmd, lsCmd, catCmd, putCmd, getCmd, mkdirCmd, rmCmd, statCmd, dumpCmd)
}

func boot() (*filesystem.FileSystem, error) {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	fs := filesystem.New(layout.Default)
	fs.SetLogger(logrus.NewEntry(log))
	if err := fs.Boot(imagePath); err != nil {
		return nil, fmt.Errorf("booting %s: %w", imagePath, err)
	}
	return fs, nil
}

var mkfsCmd = &cobra.Command{
	Use:   "mkfs",
	Short: "Format a fresh image at --image (no-op if it already exists and is valid)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := boot()
		if err != nil {
			return err
		}
		return fs.Sync()
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory's entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/"
		if len(args) == 1 {
			path = args[0]
		}
		fs, err := boot()
		if err != nil {
			return err
		}
		entries, err := fs.ReadDir(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			kind := "file"
			if e.IsDir {
				kind = "dir"
			}
			fmt.Printf("%-6s %6d  %s\n", kind, e.Inode, e.Name)
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file's contents to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := boot()
		if err != nil {
			return err
		}
		fd, err := fs.FileOpen(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = fs.FileClose(fd) }()

		buf := make([]byte, 4096)
		for {
			n, err := fs.FileRead(fd, buf)
			if n > 0 {
				if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
					return werr
				}
			}
			if n == 0 || err != nil {
				return err
			}
		}
	},
}

var putCmd = &cobra.Command{
	Use:   "put <host-file> <image-path>",
	Short: "Copy a host file into the image as a new file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := boot()
		if err != nil {
			return err
		}
		src, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		if err := fs.FileCreate(args[1]); err != nil {
			return err
		}
		fd, err := fs.FileOpen(args[1])
		if err != nil {
			return err
		}
		defer func() { _ = fs.FileClose(fd) }()

		buf := make([]byte, 32*1024)
		for {
			n, rerr := src.Read(buf)
			if n > 0 {
				if _, werr := fs.FileWrite(fd, buf[:n]); werr != nil {
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
		return fs.Sync()
	},
}

var getCmd = &cobra.Command{
	Use:   "get <image-path> <host-file>",
	Short: "Copy a file out of the image to a host file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := boot()
		if err != nil {
			return err
		}
		fd, err := fs.FileOpen(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = fs.FileClose(fd) }()

		dst, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer func() { _ = dst.Close() }()

		buf := make([]byte, 4096)
		for {
			n, rerr := fs.FileRead(fd, buf)
			if n > 0 {
				if _, werr := dst.Write(buf[:n]); werr != nil {
					return werr
				}
			}
			if n == 0 || rerr != nil {
				return rerr
			}
		}
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := boot()
		if err != nil {
			return err
		}
		if err := fs.DirCreate(args[0]); err != nil {
			return err
		}
		return fs.Sync()
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a file or empty directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := boot()
		if err != nil {
			return err
		}
		isDir, _, err := fs.Stat(args[0])
		if err != nil {
			return err
		}
		if isDir {
			err = fs.DirUnlink(args[0])
		} else {
			err = fs.FileUnlink(args[0])
		}
		if err != nil {
			return err
		}
		return fs.Sync()
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show an entry's type and size, and the host image file's timestamps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := boot()
		if err != nil {
			return err
		}
		isDir, size, err := fs.Stat(args[0])
		if err != nil {
			return err
		}
		kind := "file"
		if isDir {
			kind = "dir"
		}
		fmt.Printf("%s  %s  %d bytes\n", args[0], kind, size)

		ht, err := file.StatHostTimes(imagePath)
		if err == nil {
			fmt.Printf("image file modified %d, accessed %d\n", ht.ModTime, ht.AccessTime)
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump <sector>",
	Short: "Hex-dump a single raw sector of the backing image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sector int
		if _, err := fmt.Sscanf(args[0], "%d", &sector); err != nil {
			return fmt.Errorf("invalid sector number %q: %w", args[0], err)
		}
		fs, err := boot()
		if err != nil {
			return err
		}
		buf, err := fs.DumpSector(sector)
		if err != nil {
			return err
		}
		fmt.Print(util.DumpByteSlice(buf, 16, true, true, false, nil))
		return nil
	},
}
