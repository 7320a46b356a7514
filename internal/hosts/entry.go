package hosts

import (
	"strings"
	"sync/atomic"
)

// IDAllocator hands out increasing identifiers for entries and hosts.
// The zero value starts at 1 and is safe for concurrent use.
type IDAllocator struct {
	last atomic.Uint64
}

// NewIDAllocator returns an allocator whose first id is start.
func NewIDAllocator(start uint64) *IDAllocator {
	a := &IDAllocator{}
	if start > 0 {
		a.last.Store(start - 1)
	}
	return a
}

// Next returns a fresh id. Ids are never reused.
func (a *IDAllocator) Next() uint64 {
	return a.last.Add(1)
}

// Host is one alias of an entry.
type Host struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Entry groups every alias mapped to one address, enabled or not.
type Entry struct {
	ID      uint64 `json:"id"`
	Address string `json:"address"`
	Hosts   []Host `json:"hosts"`
}

// NewEntry creates an entry for address holding names with one enabled state.
// Duplicate names collapse onto their first occurrence.
func NewEntry(ids *IDAllocator, address string, names []string, enabled bool) Entry {
	e := Entry{ID: ids.Next(), Address: address}
	e.AddHosts(ids, names, enabled)
	return e
}

// AddHosts appends names that are not already present. Names already in the
// entry keep their id and enabled flag.
func (e *Entry) AddHosts(ids *IDAllocator, names []string, enabled bool) int {
	seen := make(map[string]struct{}, len(e.Hosts)+len(names))
	for _, h := range e.Hosts {
		seen[h.Name] = struct{}{}
	}
	added := 0
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		e.Hosts = append(e.Hosts, Host{ID: ids.Next(), Name: name, Enabled: enabled})
		added++
	}
	return added
}

// HostIndex returns the position of the host called name, or -1.
func (e Entry) HostIndex(name string) int {
	for i, h := range e.Hosts {
		if h.Name == name {
			return i
		}
	}
	return -1
}

// HostNames partitions the host names by enabled state, preserving order.
func (e Entry) HostNames() (enabled, disabled []string) {
	for _, h := range e.Hosts {
		if h.Enabled {
			enabled = append(enabled, h.Name)
		} else {
			disabled = append(disabled, h.Name)
		}
	}
	return enabled, disabled
}

// Contains reports whether query appears in the address or any host name.
func (e Entry) Contains(query string) bool {
	if strings.Contains(e.Address, query) {
		return true
	}
	for _, h := range e.Hosts {
		if strings.Contains(h.Name, query) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	e.Hosts = append([]Host(nil), e.Hosts...)
	return e
}

// CloneEntries deep-copies a list of entries.
func CloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
