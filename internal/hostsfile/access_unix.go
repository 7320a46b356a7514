//go:build !windows

package hostsfile

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CanWrite reports whether the current process may replace the file at
// path. Replacing needs write access to the directory for the rename; the
// file itself is checked when it exists.
func CanWrite(path string) bool {
	if err := unix.Access(filepath.Dir(path), unix.W_OK); err != nil {
		return false
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return true
	}
	return unix.Access(path, unix.W_OK) == nil
}

// Elevated reports whether the process runs as root.
func Elevated() bool {
	return unix.Geteuid() == 0
}

// renameBlocked reports whether a rename failed because the target is a
// mount point or lives on another device.
func renameBlocked(err error) bool {
	return errors.Is(err, unix.EBUSY) || errors.Is(err, unix.EXDEV)
}
