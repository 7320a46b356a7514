// Package hostsfile reads and writes the hosts file on disk and keeps
// timestamped backups of it.
package hostsfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// EnvPath overrides the hosts file location, mostly for development.
const EnvPath = "HED_HOSTS_PATH"

// ErrPermission is returned by Write when the process may not replace the
// hosts file.
var ErrPermission = errors.New("permission denied, run as administrator or with sudo")

// SystemPath returns the platform hosts file location.
func SystemPath() string {
	if runtime.GOOS == "windows" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return filepath.Join(root, "System32", "drivers", "etc", "hosts")
	}
	return "/etc/hosts"
}

// Resolve picks the hosts file to operate on: the HED_HOSTS_PATH
// environment variable, then override, then the system path.
func Resolve(override string) string {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p
	}
	if p := strings.TrimSpace(override); p != "" {
		return p
	}
	return SystemPath()
}

// Read returns the content of the file at path.
func Read(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

// rename is swapped out by tests to simulate mount points.
var rename = os.Rename

// Write atomically replaces the file at path with content. The temporary
// file lives next to path so the final rename never crosses filesystems.
// An existing file keeps its permission bits. A file that cannot be renamed
// over, such as a bind-mounted /etc/hosts in a container, is rewritten in
// place instead.
func Write(path, content string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, []byte(content), mode); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("failed to write %s: %w", path, ErrPermission)
		}
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	// WriteFile honours umask; restore the original bits.
	_ = os.Chmod(tmp, mode)

	if err := rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		if renameBlocked(err) {
			return writeInPlace(path, content, mode)
		}
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("failed to replace %s: %w", path, ErrPermission)
		}
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// writeInPlace truncates and rewrites path, keeping its inode.
func writeInPlace(path, content string, mode os.FileMode) error {
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("failed to write %s: %w", path, ErrPermission)
		}
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DetectCRLF reports whether content uses Windows line endings. Text with
// no line break reports false.
func DetectCRLF(content string) bool {
	i := strings.IndexByte(content, '\n')
	return i > 0 && content[i-1] == '\r'
}
