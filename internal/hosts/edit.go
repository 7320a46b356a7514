package hosts

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrInvalidAddress   = errors.New("not a valid IP address")
	ErrDuplicateAddress = errors.New("address already has an entry")
	ErrDuplicateHost    = errors.New("host already exists in entry")
	ErrEmptyHost        = errors.New("host name is empty")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrHostNotFound     = errors.New("host not found")
)

// The helpers below never modify their input slice; they return an edited
// copy so a caller can keep the previous list for undo or comparison.

// FindEntry returns the index of the entry with id, or -1.
func FindEntry(entries []Entry, id uint64) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// FindAddress returns the index of the entry for address, or -1.
func FindAddress(entries []Entry, address string) int {
	for i, e := range entries {
		if e.Address == address {
			return i
		}
	}
	return -1
}

func locateHost(entries []Entry, entryID, hostID uint64) (int, int, error) {
	ei := FindEntry(entries, entryID)
	if ei < 0 {
		return -1, -1, ErrEntryNotFound
	}
	for hi, h := range entries[ei].Hosts {
		if h.ID == hostID {
			return ei, hi, nil
		}
	}
	return ei, -1, ErrHostNotFound
}

// SplitHostNames splits user input on whitespace and commas.
func SplitHostNames(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// nameBreak matches runes ParseLine would split an alias on or read as the
// start of a comment.
func nameBreak(r rune) bool {
	return r == '#' || unicode.IsSpace(r)
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyHost
	}
	if strings.IndexFunc(name, nameBreak) >= 0 {
		return "", fmt.Errorf("invalid host name %q", name)
	}
	return name, nil
}

func validNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		v, err := validName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, ErrEmptyHost
	}
	return out, nil
}

// ValidateAddress trims address and checks that it is an IP literal.
func ValidateAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("address is empty: %w", ErrInvalidAddress)
	}
	if !IsAddress(address) {
		return "", fmt.Errorf("`%s` is %w", address, ErrInvalidAddress)
	}
	return address, nil
}

// SetHostEnabled switches one host on or off.
func SetHostEnabled(entries []Entry, entryID, hostID uint64, enabled bool) ([]Entry, error) {
	ei, hi, err := locateHost(entries, entryID, hostID)
	if err != nil {
		return entries, err
	}
	out := CloneEntries(entries)
	out[ei].Hosts[hi].Enabled = enabled
	return out, nil
}

// ToggleHost flips the enabled state of one host.
func ToggleHost(entries []Entry, entryID, hostID uint64) ([]Entry, error) {
	ei, hi, err := locateHost(entries, entryID, hostID)
	if err != nil {
		return entries, err
	}
	return SetHostEnabled(entries, entryID, hostID, !entries[ei].Hosts[hi].Enabled)
}

// SetEntryEnabled switches every host of an entry on or off.
func SetEntryEnabled(entries []Entry, entryID uint64, enabled bool) ([]Entry, error) {
	ei := FindEntry(entries, entryID)
	if ei < 0 {
		return entries, ErrEntryNotFound
	}
	out := CloneEntries(entries)
	for i := range out[ei].Hosts {
		out[ei].Hosts[i].Enabled = enabled
	}
	return out, nil
}

// RenameHost changes a host name, keeping its id and enabled state.
func RenameHost(entries []Entry, entryID, hostID uint64, name string) ([]Entry, error) {
	ei, hi, err := locateHost(entries, entryID, hostID)
	if err != nil {
		return entries, err
	}
	name, err = validName(name)
	if err != nil {
		return entries, err
	}
	if entries[ei].Hosts[hi].Name == name {
		return entries, nil
	}
	if entries[ei].HostIndex(name) >= 0 {
		return entries, fmt.Errorf("%s: %w", name, ErrDuplicateHost)
	}
	out := CloneEntries(entries)
	out[ei].Hosts[hi].Name = name
	return out, nil
}

// DeleteHost removes one host from an entry. An entry left without hosts is
// kept; reconciliation drops its lines.
func DeleteHost(entries []Entry, entryID, hostID uint64) ([]Entry, error) {
	ei, hi, err := locateHost(entries, entryID, hostID)
	if err != nil {
		return entries, err
	}
	out := CloneEntries(entries)
	hs := out[ei].Hosts
	out[ei].Hosts = append(hs[:hi:hi], hs[hi+1:]...)
	return out, nil
}

// DeleteEntry removes an entry and with it every line for its address.
func DeleteEntry(entries []Entry, entryID uint64) ([]Entry, error) {
	ei := FindEntry(entries, entryID)
	if ei < 0 {
		return entries, ErrEntryNotFound
	}
	out := make([]Entry, 0, len(entries)-1)
	for i, e := range entries {
		if i != ei {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

// AddEntry adds enabled hosts for address. When the address already has an
// entry the names join it instead. The id of the receiving entry is returned.
func AddEntry(entries []Entry, ids *IDAllocator, address string, names []string) ([]Entry, uint64, error) {
	address, err := ValidateAddress(address)
	if err != nil {
		return entries, 0, err
	}
	names, err = validNames(names)
	if err != nil {
		return entries, 0, err
	}
	out := CloneEntries(entries)
	if ei := FindAddress(out, address); ei >= 0 {
		out[ei].AddHosts(ids, names, true)
		return out, out[ei].ID, nil
	}
	e := NewEntry(ids, address, names, true)
	return append(out, e), e.ID, nil
}

// AddHosts appends names to an existing entry; duplicates are ignored.
func AddHosts(entries []Entry, ids *IDAllocator, entryID uint64, names []string, enabled bool) ([]Entry, error) {
	ei := FindEntry(entries, entryID)
	if ei < 0 {
		return entries, ErrEntryNotFound
	}
	names, err := validNames(names)
	if err != nil {
		return entries, err
	}
	out := CloneEntries(entries)
	out[ei].AddHosts(ids, names, enabled)
	return out, nil
}

// SetAddress moves an entry to a new address.
func SetAddress(entries []Entry, entryID uint64, address string) ([]Entry, error) {
	ei := FindEntry(entries, entryID)
	if ei < 0 {
		return entries, ErrEntryNotFound
	}
	address, err := ValidateAddress(address)
	if err != nil {
		return entries, err
	}
	if other := FindAddress(entries, address); other >= 0 && other != ei {
		return entries, fmt.Errorf("%s: %w", address, ErrDuplicateAddress)
	}
	out := CloneEntries(entries)
	out[ei].Address = address
	return out, nil
}

// SetEnabledByName switches every host called name, across all entries, and
// returns how many hosts matched.
func SetEnabledByName(entries []Entry, name string, enabled bool) ([]Entry, int) {
	out := CloneEntries(entries)
	n := 0
	for ei := range out {
		for hi := range out[ei].Hosts {
			if out[ei].Hosts[hi].Name == name {
				out[ei].Hosts[hi].Enabled = enabled
				n++
			}
		}
	}
	return out, n
}

// RemoveByName deletes every host called name and returns how many matched.
func RemoveByName(entries []Entry, name string) ([]Entry, int) {
	out := CloneEntries(entries)
	n := 0
	for ei := range out {
		if hi := out[ei].HostIndex(name); hi >= 0 {
			hs := out[ei].Hosts
			out[ei].Hosts = append(hs[:hi:hi], hs[hi+1:]...)
			n++
		}
	}
	return out, n
}

// RenameByName renames every host called oldName whose entry does not
// already hold newName, and returns how many were renamed.
func RenameByName(entries []Entry, oldName, newName string) ([]Entry, int, error) {
	newName, err := validName(newName)
	if err != nil {
		return entries, 0, err
	}
	out := CloneEntries(entries)
	n := 0
	for ei := range out {
		hi := out[ei].HostIndex(oldName)
		if hi < 0 || out[ei].HostIndex(newName) >= 0 {
			continue
		}
		out[ei].Hosts[hi].Name = newName
		n++
	}
	return out, n, nil
}
