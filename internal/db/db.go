package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mutecomm/go-sqlcipher/v4" // SQLCipher driver

	"github.com/hedhosts/hed/internal/config"
	"github.com/hedhosts/hed/internal/crypto"
)

var (
	ErrEmptyName       = errors.New("name is empty")
	ErrProfileExists   = errors.New("already exists")
	ErrProfileNotFound = errors.New("profile not found")
)

// Store handles profile persistence in an encrypted SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// ProfileModel is a user profile: a named hosts file kept outside the
// system one.
type ProfileModel struct {
	ID        int64
	UID       string
	Name      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	AppliedAt *time.Time
}

// DBPath returns the path to the database file.
// HED_DB_PATH points at the file itself; otherwise it lives in the data dir.
func DBPath() (string, error) {
	if p := os.Getenv("HED_DB_PATH"); p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return "", err
		}
		return p, nil
	}
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles.db"), nil
}

// Exists checks if the database file exists
func Exists() (bool, error) {
	dbPath, err := DBPath()
	if err != nil {
		return false, err
	}
	return fileExists(dbPath)
}

// Delete removes the database file (destructive).
func Delete() error {
	dbPath, err := DBPath()
	if err != nil {
		return err
	}
	err = os.Remove(dbPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Init opens the database keyed by secret and initializes the schema.
func Init(secret string) (*Store, error) {
	dbPath, err := DBPath()
	if err != nil {
		return nil, err
	}

	exists, err := fileExists(dbPath)
	if err != nil {
		return nil, err
	}

	keyHex, err := crypto.DatabaseKey(secret)
	if err != nil {
		return nil, err
	}

	// Verify an existing file read-only first so a wrong key never gets the
	// chance to write a fresh schema over it.
	if exists {
		roDSN := fmt.Sprintf("file:%s?mode=ro&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
		ro, err := sql.Open("sqlite3", roDSN)
		if err != nil {
			return nil, err
		}
		if err := verifyUnlocked(ro); err != nil {
			ro.Close()
			return nil, classifyUnlockError(err, dbPath)
		}
		_ = ro.Close()
	}

	rwDSN := fmt.Sprintf("file:%s?mode=rwc&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", rwDSN)
	if err != nil {
		return nil, err
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, classifyUnlockError(err, dbPath)
	}

	return &Store{db: db, path: dbPath}, nil
}

// verifyUnlocked fails unless the key decrypts a database holding profiles.
// Reading sqlite_master is the first access that needs the key.
func verifyUnlocked(db *sql.DB) error {
	ok, err := hasTable(db, "profiles")
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("locked or uninitialized")
	}
	return nil
}

func classifyUnlockError(err error, dbPath string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "requires cgo"),
		strings.Contains(msg, "compiled with 'cgo_enabled=0'"):
		return fmt.Errorf("this binary was built without CGO support; rebuild with CGO_ENABLED=1")
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database is busy"):
		return fmt.Errorf("database is in use by another process: %s", dbPath)
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "access is denied"):
		return fmt.Errorf("cannot access database file: %s", dbPath)
	case strings.Contains(msg, "file is encrypted"),
		strings.Contains(msg, "file is not a database"),
		strings.Contains(msg, "locked or uninitialized"):
		return fmt.Errorf("wrong key for database %s (was the keyring entry reset?)", dbPath)
	default:
		return fmt.Errorf("failed to open database: %w", err)
	}
}

func hasTable(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		content TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`)
	if err != nil {
		return err
	}

	// Added after the first release; ALTER TABLE cannot carry a
	// CURRENT_TIMESTAMP default, so the column starts NULL.
	if err := ensureColumn(db, "profiles", "applied_at", "TIMESTAMP"); err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`)
	return err
}

// ensureColumn adds column to table unless an older schema already has it.
func ensureColumn(db *sql.DB, table, column, typ string) error {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typ))
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// GetSetting reads a value from the config table; missing keys return "".
func (s *Store) GetSetting(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// SetSetting stores a value in the config table.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, key, value)
	return err
}

// timestampLayouts covers what CURRENT_TIMESTAMP and the driver's
// time.Time binding produce.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// parseTimestamp reads a stored timestamp; unparseable values are zero.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func newUID() string {
	return uuid.NewString()
}
