package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hedhosts/hed/internal/hosts"
	"github.com/hedhosts/hed/internal/hostsfile"
)

// EnvDataDir overrides the directory holding config, profiles and history.
const EnvDataDir = "HED_DATA_DIR"

type LineEndingMode string

const (
	LineEndingAuto LineEndingMode = "auto"
	LineEndingLF   LineEndingMode = "lf"
	LineEndingCRLF LineEndingMode = "crlf"
)

// ViewKind selects how the editor panel shows a profile.
type ViewKind string

const (
	ViewOptions ViewKind = "options"
	ViewText    ViewKind = "text"
)

type Config struct {
	Version int `json:"version"`

	UI struct {
		VimMode     bool     `json:"vim_mode"`
		DefaultView ViewKind `json:"default_view"`
	} `json:"ui"`

	Hosts struct {
		Path       string         `json:"path"`
		LineEnding LineEndingMode `json:"line_ending"`
		Backup     bool           `json:"backup"`
		BackupDir  string         `json:"backup_dir"`
		MaxBackups int            `json:"max_backups"`
	} `json:"hosts"`

	History struct {
		Enabled     bool   `json:"enabled"`
		RepoPath    string `json:"repo_path"`
		RemoteURL   string `json:"remote_url"`
		SSHKeyPath  string `json:"ssh_key_path"`
		Branch      string `json:"branch"`
		AuthorName  string `json:"author_name"`
		AuthorEmail string `json:"author_email"`
	} `json:"history"`

	Lookup struct {
		Server string `json:"server"`
	} `json:"lookup"`
}

func Default() Config {
	var c Config
	c.Version = 1
	c.UI.VimMode = true
	c.UI.DefaultView = ViewOptions

	c.Hosts.Path = "" // empty means the system hosts file
	c.Hosts.LineEnding = LineEndingAuto
	c.Hosts.Backup = true
	c.Hosts.BackupDir = "" // empty means <data dir>/backups
	c.Hosts.MaxBackups = 20

	c.History.Enabled = false
	c.History.RepoPath = "" // empty means <data dir>/history
	c.History.Branch = "main"
	c.History.AuthorName = "hed"
	c.History.AuthorEmail = "hed@localhost"

	c.Lookup.Server = "" // empty means the first resolv.conf nameserver
	return c
}

// DataDir returns the base data directory for hed.
// Respects HED_DATA_DIR for tests and custom setups.
func DataDir() (string, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", err
		}
		return dir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hed"), nil
}

func Path() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), err
	}
	c := Default()
	if err := json.Unmarshal(b, &c); err != nil {
		return Default(), err
	}
	return withDefaults(c), nil
}

func Save(c Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	c = withDefaults(c)
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// withDefaults normalizes enums and out-of-range numbers. Load decodes over
// Default(), so fields missing from the file already hold their defaults.
func withDefaults(c Config) Config {
	def := Default()
	if c.Version == 0 {
		c.Version = def.Version
	}

	switch c.UI.DefaultView {
	case ViewOptions, ViewText:
	default:
		c.UI.DefaultView = def.UI.DefaultView
	}

	switch c.Hosts.LineEnding {
	case LineEndingAuto, LineEndingLF, LineEndingCRLF:
	default:
		c.Hosts.LineEnding = def.Hosts.LineEnding
	}
	if c.Hosts.MaxBackups < 0 || c.Hosts.MaxBackups > 1000 {
		c.Hosts.MaxBackups = def.Hosts.MaxBackups
	}

	if strings.TrimSpace(c.History.Branch) == "" {
		c.History.Branch = def.History.Branch
	}
	if strings.TrimSpace(c.History.AuthorName) == "" {
		c.History.AuthorName = def.History.AuthorName
	}
	if strings.TrimSpace(c.History.AuthorEmail) == "" {
		c.History.AuthorEmail = def.History.AuthorEmail
	}
	return c
}

// HostsPath returns the hosts file to edit.
func (c *Config) HostsPath() string {
	return hostsfile.Resolve(c.Hosts.Path)
}

// BackupDir returns where hosts file backups go, or "" when backups are
// disabled.
func (c *Config) BackupDir() (string, error) {
	if !c.Hosts.Backup {
		return "", nil
	}
	if c.Hosts.BackupDir != "" {
		return c.Hosts.BackupDir, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backups"), nil
}

// HistoryPath returns the path to the history repository directory.
// If RepoPath is set, it returns that; otherwise returns the default path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.RepoPath != "" {
		return c.History.RepoPath, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// LineEnding picks the separator used to render content. In auto mode the
// content's own line endings win; content without any falls back to the
// platform default.
func (c *Config) LineEnding(content string) hosts.LineEnding {
	switch c.Hosts.LineEnding {
	case LineEndingLF:
		return hosts.LF
	case LineEndingCRLF:
		return hosts.CRLF
	}
	if strings.Contains(content, "\n") {
		return hosts.LineEndingFor(hostsfile.DetectCRLF(content))
	}
	return hosts.PlatformLineEnding()
}
