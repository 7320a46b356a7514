package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SystemProfileName names the profile backed by the real hosts file. User
// profiles may not take it.
const SystemProfileName = "System"

const profileColumns = `id, uid, name, content, created_at, COALESCE(updated_at, created_at), applied_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(r rowScanner) (ProfileModel, error) {
	var p ProfileModel
	var createdAt, updatedAt string
	var appliedAt sql.NullString
	if err := r.Scan(&p.ID, &p.UID, &p.Name, &p.Content, &createdAt, &updatedAt, &appliedAt); err != nil {
		return ProfileModel{}, err
	}
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if appliedAt.Valid && appliedAt.String != "" {
		if t := parseTimestamp(appliedAt.String); !t.IsZero() {
			p.AppliedAt = &t
		}
	}
	return p, nil
}

// NormalizeProfileName trims name and rejects empty names.
func NormalizeProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// nameTaken reports whether another profile (not exceptID) already uses
// name, compared case-insensitively.
func (s *Store) nameTaken(name string, exceptID int64) (bool, error) {
	if strings.EqualFold(name, SystemProfileName) {
		return true, nil
	}
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM profiles WHERE name = ? AND id != ?`, name, exceptID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateProfile adds a profile. Names are trimmed and unique regardless of
// case.
func (s *Store) CreateProfile(name, content string) (ProfileModel, error) {
	name, err := NormalizeProfileName(name)
	if err != nil {
		return ProfileModel{}, err
	}
	taken, err := s.nameTaken(name, 0)
	if err != nil {
		return ProfileModel{}, err
	}
	if taken {
		return ProfileModel{}, fmt.Errorf("`%s` %w", name, ErrProfileExists)
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO profiles (uid, name, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, newUID(), name, content, now, now)
	if err != nil {
		return ProfileModel{}, fmt.Errorf("failed to create profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ProfileModel{}, err
	}
	return s.GetProfile(id)
}

// GetProfiles returns every profile ordered by name.
func (s *Store) GetProfiles() ([]ProfileModel, error) {
	rows, err := s.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []ProfileModel{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfile returns the profile with id.
func (s *Store) GetProfile(id int64) (ProfileModel, error) {
	p, err := scanProfile(s.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return ProfileModel{}, ErrProfileNotFound
	}
	return p, err
}

// GetProfileByName looks a profile up case-insensitively.
func (s *Store) GetProfileByName(name string) (ProfileModel, error) {
	p, err := scanProfile(s.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, strings.TrimSpace(name)))
	if err == sql.ErrNoRows {
		return ProfileModel{}, fmt.Errorf("%s: %w", name, ErrProfileNotFound)
	}
	return p, err
}

// RenameProfile changes a profile's name.
func (s *Store) RenameProfile(id int64, name string) error {
	name, err := NormalizeProfileName(name)
	if err != nil {
		return err
	}
	taken, err := s.nameTaken(name, id)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("`%s` %w", name, ErrProfileExists)
	}
	return s.updateOne(`UPDATE profiles SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now().UTC(), id)
}

// UpdateProfileContent saves new content for a profile.
func (s *Store) UpdateProfileContent(id int64, content string) error {
	return s.updateOne(`UPDATE profiles SET content = ?, updated_at = ? WHERE id = ?`, content, time.Now().UTC(), id)
}

// MarkApplied records when a profile was last written to the system hosts
// file.
func (s *Store) MarkApplied(id int64, at time.Time) error {
	return s.updateOne(`UPDATE profiles SET applied_at = ? WHERE id = ?`, at.UTC(), id)
}

// DeleteProfile removes a profile.
func (s *Store) DeleteProfile(id int64) error {
	return s.updateOne(`DELETE FROM profiles WHERE id = ?`, id)
}

func (s *Store) updateOne(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
