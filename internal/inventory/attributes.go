// Package inventory probes one device for a fixed set of attributes and
// assembles its report record.
package inventory

import (
	"fmt"
	"slices"
	"strings"
)

// AttributeSpec pairs a report column name with the OID that holds it.
type AttributeSpec struct {
	Name string
	OID  string
}

// AttributeSet is an ordered, immutable list of attributes. The order is the
// order of fetches and of report columns.
type AttributeSet struct {
	specs []AttributeSpec
}

// NewAttributeSet copies specs into a set. Names must be unique and
// non-empty, OIDs non-empty.
func NewAttributeSet(specs ...AttributeSpec) (AttributeSet, error) {
	seen := make(map[string]bool, len(specs))
	out := make([]AttributeSpec, 0, len(specs))
	for i, s := range specs {
		name := strings.TrimSpace(s.Name)
		oid := normalizeOID(s.OID)
		if name == "" {
			return AttributeSet{}, fmt.Errorf("attribute %d: name is required", i)
		}
		if oid == "" {
			return AttributeSet{}, fmt.Errorf("attribute %q: oid is required", name)
		}
		if seen[name] {
			return AttributeSet{}, fmt.Errorf("attribute %q: duplicate name", name)
		}
		seen[name] = true
		out = append(out, AttributeSpec{Name: name, OID: oid})
	}
	return AttributeSet{specs: out}, nil
}

// Specs returns a copy of the attributes in declared order.
func (a AttributeSet) Specs() []AttributeSpec {
	return slices.Clone(a.specs)
}

// Names returns the attribute names in declared order.
func (a AttributeSet) Names() []string {
	names := make([]string, len(a.specs))
	for i, s := range a.specs {
		names[i] = s.Name
	}
	return names
}

// Len returns the number of attributes.
func (a AttributeSet) Len() int {
	return len(a.specs)
}

// FallbackSpec lists alternative OIDs for one logical attribute, most
// preferred first.
type FallbackSpec struct {
	name string
	oids []string
}

// NewFallbackSpec builds a fallback list.
func NewFallbackSpec(name string, oids ...string) (FallbackSpec, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return FallbackSpec{}, fmt.Errorf("fallback attribute name is required")
	}
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		oid = normalizeOID(oid)
		if oid == "" {
			return FallbackSpec{}, fmt.Errorf("fallback %q: empty oid", name)
		}
		out = append(out, oid)
	}
	return FallbackSpec{name: name, oids: out}, nil
}

// Name returns the logical attribute's column name.
func (f FallbackSpec) Name() string {
	return f.name
}

// OIDs returns a copy of the candidates in preference order.
func (f FallbackSpec) OIDs() []string {
	return slices.Clone(f.oids)
}

func normalizeOID(oid string) string {
	return strings.TrimPrefix(strings.TrimSpace(oid), ".")
}

// Printer OIDs used when the configuration does not name its own.
const (
	OIDSysDescr              = "1.3.6.1.2.1.1.1.0"
	OIDPrtMarkerLifeCount    = "1.3.6.1.2.1.43.10.2.1.4.1.1"
	OIDHrDeviceStatus        = "1.3.6.1.2.1.25.3.2.1.5.1"
	OIDPrtGeneralSerialNum   = "1.3.6.1.2.1.43.5.1.1.17.1"
	OIDRicohSerialNumber     = "1.3.6.1.4.1.367.3.2.1.2.1.4.0"
	DefaultFallbackAttribute = "Serial Number"
)

// DefaultAttributes returns the printer attribute set.
func DefaultAttributes() AttributeSet {
	set, _ := NewAttributeSet(
		AttributeSpec{Name: "Printer Model", OID: OIDSysDescr},
		AttributeSpec{Name: "Total Page Count", OID: OIDPrtMarkerLifeCount},
		AttributeSpec{Name: "Device Status", OID: OIDHrDeviceStatus},
	)
	return set
}

// DefaultFallback returns the serial number lookup: the Printer-MIB column
// first, then Ricoh's enterprise OID.
func DefaultFallback() FallbackSpec {
	f, _ := NewFallbackSpec(DefaultFallbackAttribute, OIDPrtGeneralSerialNum, OIDRicohSerialNumber)
	return f
}
