package hostsfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupPrefix = "hosts.bak."
	backupLayout = "20060102-150405"
)

// ErrBackupNotFound is returned by Restore for an unknown backup name.
var ErrBackupNotFound = errors.New("backup not found")

// BackupInfo describes one backup file.
type BackupInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// Backup copies the file at path into dir under a timestamped name and
// returns the backup's path. A missing source file is not an error and
// yields an empty path.
func Backup(path, dir string, now time.Time) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	name := backupPrefix + now.Format(backupLayout)
	dst := filepath.Join(dir, name)
	// Two saves within the same second get a numeric suffix.
	for i := 1; ; i++ {
		if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
			break
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s.%d", name, i))
	}

	if err := copyFile(path, dst); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return dst, nil
}

// ListBackups returns the backups in dir, newest first. A missing dir holds
// no backups.
func ListBackups(dir string) ([]BackupInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := []BackupInfo{}
	for _, f := range files {
		if f.IsDir() || !strings.HasPrefix(f.Name(), backupPrefix) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		created := info.ModTime()
		stamp := strings.TrimPrefix(f.Name(), backupPrefix)
		if len(stamp) >= len(backupLayout) {
			if t, err := time.ParseInLocation(backupLayout, stamp[:len(backupLayout)], time.Local); err == nil {
				created = t
			}
		}
		backups = append(backups, BackupInfo{
			Name:    f.Name(),
			Path:    filepath.Join(dir, f.Name()),
			Size:    info.Size(),
			Created: created,
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Created.Equal(backups[j].Created) {
			return backups[i].Name > backups[j].Name
		}
		return backups[i].Created.After(backups[j].Created)
	})
	return backups, nil
}

// Prune deletes all but the newest keep backups in dir and returns how many
// were removed. keep <= 0 disables pruning.
func Prune(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	backups, err := ListBackups(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, b := range backups[min(keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			return removed, fmt.Errorf("failed to remove backup %s: %w", b.Name, err)
		}
		removed++
	}
	return removed, nil
}

// Restore copies the named backup from dir over path. name may also be an
// absolute path to a backup file.
func Restore(dir, name, path string) error {
	src := name
	if !filepath.IsAbs(name) {
		if name != filepath.Base(name) {
			return fmt.Errorf("invalid backup name %q", name)
		}
		src = filepath.Join(dir, name)
	}
	content, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, ErrBackupNotFound)
		}
		return fmt.Errorf("failed to read backup: %w", err)
	}
	return Write(path, string(content))
}

func copyFile(src, dst string) error {
	s, err := os.Open(src)
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(d, s); err != nil {
		_ = d.Close()
		return err
	}
	return d.Close()
}
