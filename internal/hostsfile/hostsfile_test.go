package hostsfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	t.Setenv(EnvPath, "")
	if got := Resolve(""); got != SystemPath() {
		t.Fatalf("expected system path, got %q", got)
	}
	if got := Resolve("/tmp/custom"); got != "/tmp/custom" {
		t.Fatalf("expected override, got %q", got)
	}
	t.Setenv(EnvPath, "/tmp/from-env")
	if got := Resolve("/tmp/custom"); got != "/tmp/from-env" {
		t.Fatalf("expected env path, got %q", got)
	}
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	if err := os.WriteFile(path, []byte("old\n"), 0600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := Write(path, "127.0.0.1 localhost\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "127.0.0.1 localhost\n" {
		t.Fatalf("unexpected content %q", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode not preserved: %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestDetectCRLF(t *testing.T) {
	cases := map[string]bool{
		"":            false,
		"a":           false,
		"a\nb\n":      false,
		"a\r\nb\r\n":  true,
		"\n":          false,
		"x\r\ny\nz\n": true,
	}
	for in, want := range cases {
		if got := DetectCRLF(in); got != want {
			t.Errorf("DetectCRLF(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBackupListPruneRestore(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "hosts")
	dir := filepath.Join(root, "backups")

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		content := []string{"first\n", "second\n", "third\n"}[i]
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if _, err := Backup(path, dir, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Backup: %v", err)
		}
	}

	backups, err := ListBackups(dir)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	names := make([]string, 0, len(backups))
	for _, b := range backups {
		names = append(names, b.Name)
	}
	want := []string{
		"hosts.bak.20240501-100200",
		"hosts.bak.20240501-100100",
		"hosts.bak.20240501-100000",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("backups mismatch (-want +got):\n%s", diff)
	}

	t.Run("restore", func(t *testing.T) {
		if err := Restore(dir, "hosts.bak.20240501-100000", path); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		got, _ := Read(path)
		if got != "first\n" {
			t.Fatalf("restored content %q", got)
		}
	})

	t.Run("restore unknown", func(t *testing.T) {
		err := Restore(dir, "hosts.bak.19990101-000000", path)
		if !errors.Is(err, ErrBackupNotFound) {
			t.Fatalf("expected ErrBackupNotFound, got %v", err)
		}
	})

	t.Run("restore rejects paths", func(t *testing.T) {
		if err := Restore(dir, "../hosts", path); err == nil {
			t.Fatalf("expected error for relative path")
		}
	})

	t.Run("prune", func(t *testing.T) {
		removed, err := Prune(dir, 1)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if removed != 2 {
			t.Fatalf("expected 2 removed, got %d", removed)
		}
		left, _ := ListBackups(dir)
		if len(left) != 1 || left[0].Name != "hosts.bak.20240501-100200" {
			t.Fatalf("unexpected backups after prune: %+v", left)
		}
	})
}

func TestBackupSameSecond(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "hosts")
	dir := filepath.Join(root, "backups")
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)

	first, err := Backup(path, dir, now)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	second, err := Backup(path, dir, now)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if first == second {
		t.Fatalf("second backup overwrote the first")
	}

	backups, _ := ListBackups(dir)
	if len(backups) != 2 || backups[0].Path != second {
		t.Fatalf("expected newest backup first, got %+v", backups)
	}
}

func TestBackupMissingSource(t *testing.T) {
	root := t.TempDir()
	got, err := Backup(filepath.Join(root, "nope"), filepath.Join(root, "b"), time.Now())
	if err != nil || got != "" {
		t.Fatalf("expected no-op, got %q, %v", got, err)
	}
}

func TestListBackupsMissingDir(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "none"))
	if err != nil || len(backups) != 0 {
		t.Fatalf("expected empty list, got %v, %v", backups, err)
	}
}

func TestCanWriteTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	if !CanWrite(path) {
		t.Fatalf("expected missing file in writable dir to be writable")
	}
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !CanWrite(path) {
		t.Fatalf("expected file to be writable")
	}
}
