//go:build windows

package hostsfile

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// CanWrite reports whether the current process may replace the file at
// path. On Windows the system hosts file is only writable from an elevated
// token, so elevation is checked first and an open for writing confirms it.
func CanWrite(path string) bool {
	if path == SystemPath() && !Elevated() {
		return false
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return os.IsNotExist(err)
	}
	_ = f.Close()
	return true
}

// Elevated reports whether the process token is elevated.
func Elevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// renameBlocked reports whether a rename failed because the target is
// locked by another process or lives on another volume.
func renameBlocked(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_NOT_SAME_DEVICE)
}
