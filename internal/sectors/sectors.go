// Package sectors maps device addresses to the sector label printed on the
// report. The map is loaded once before polling and only read afterwards.
package sectors

import (
	"maps"
	"slices"
	"strings"
)

// NotFound is the sector reported for devices missing from the mapping.
const NotFound = "N/A - sector not found"

// Map is an immutable address to sector lookup.
type Map struct {
	entries map[string]string
}

// New builds a map from entries. Keys and values are trimmed; entries with
// an empty key or value are dropped.
func New(entries map[string]string) *Map {
	m := &Map{entries: make(map[string]string, len(entries))}
	for ip, sector := range entries {
		ip, sector = strings.TrimSpace(ip), strings.TrimSpace(sector)
		if ip == "" || sector == "" {
			continue
		}
		m.entries[ip] = sector
	}
	return m
}

// Lookup returns the sector for ip.
func (m *Map) Lookup(ip string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m.entries[strings.TrimSpace(ip)]
	return s, ok
}

// Sector returns the sector for ip, or NotFound.
func (m *Map) Sector(ip string) string {
	if s, ok := m.Lookup(ip); ok {
		return s
	}
	return NotFound
}

// Len returns the number of mapped addresses.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// IPs returns the mapped addresses in sorted order.
func (m *Map) IPs() []string {
	if m == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(m.entries))
}

// Entries returns a copy of the mapping.
func (m *Map) Entries() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m.entries)
}
