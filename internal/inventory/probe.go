package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nmslite/fleetpoll/internal/snmp"
)

// Cell is one attribute of a record: the raw value, or a formatted error.
type Cell struct {
	Name string
	Text string
	OK   bool
}

// Record is everything the report holds for one device. Cells follow the
// attribute set order with the fallback attribute last.
type Record struct {
	Device string
	Sector string
	Cells  []Cell
}

// Value returns the cell text for name.
func (r Record) Value(name string) (string, bool) {
	for _, c := range r.Cells {
		if c.Name == name {
			return c.Text, true
		}
	}
	return "", false
}

// Failed counts the cells that hold an error.
func (r Record) Failed() int {
	n := 0
	for _, c := range r.Cells {
		if !c.OK {
			n++
		}
	}
	return n
}

// Dialer opens a per-device fetcher. *snmp.Engine satisfies it.
type Dialer interface {
	Dial(ctx context.Context, device string) (snmp.Fetcher, error)
}

// SectorLookup resolves a device's sector, returning a sentinel when the
// device is not mapped.
type SectorLookup interface {
	Sector(device string) string
}

// Prober builds records for single devices. It is safe for concurrent use.
type Prober struct {
	dialer   Dialer
	attrs    AttributeSet
	fallback FallbackSpec
	sectors  SectorLookup
	logger   *slog.Logger
}

// NewProber wires a prober. The fallback name must not repeat an attribute name.
func NewProber(dialer Dialer, attrs AttributeSet, fallback FallbackSpec, sectors SectorLookup, logger *slog.Logger) (*Prober, error) {
	for _, name := range attrs.Names() {
		if name == fallback.Name() {
			return nil, fmt.Errorf("fallback attribute %q duplicates an attribute name", name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		dialer:   dialer,
		attrs:    attrs,
		fallback: fallback,
		sectors:  sectors,
		logger:   logger,
	}, nil
}

// Columns returns the attribute column names in report order.
func (p *Prober) Columns() []string {
	return append(p.attrs.Names(), p.fallback.Name())
}

// Sector returns the sector the record for device will carry.
func (p *Prober) Sector(device string) string {
	return p.sectors.Sector(device)
}

// Probe fetches every attribute of device in order, then resolves the
// fallback attribute. A failure only affects its own cell.
func (p *Prober) Probe(ctx context.Context, device string) Record {
	rec := Record{
		Device: device,
		Sector: p.Sector(device),
		Cells:  make([]Cell, 0, p.attrs.Len()+1),
	}

	logger := p.logger.With(slog.String("device", device))

	session, err := p.dialer.Dial(ctx, device)
	if err != nil {
		logger.WarnContext(ctx, "Failed to open SNMP session",
			slog.String("error", err.Error()),
		)
		out := snmp.TransportError(err.Error())
		for _, name := range p.Columns() {
			rec.Cells = append(rec.Cells, cell(name, out))
		}
		return rec
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.DebugContext(ctx, "Failed to close SNMP session",
				slog.String("error", err.Error()),
			)
		}
	}()

	for _, spec := range p.attrs.specs {
		out := session.Fetch(ctx, spec.OID)
		if !out.OK() {
			logger.DebugContext(ctx, "Attribute fetch failed",
				slog.String("attribute", spec.Name),
				slog.String("oid", spec.OID),
				slog.String("outcome", out.Kind.String()),
				slog.String("detail", out.Detail),
			)
		}
		rec.Cells = append(rec.Cells, cell(spec.Name, out))
	}

	out := Resolve(ctx, session, p.fallback)
	if !out.OK() {
		logger.DebugContext(ctx, "Fallback attribute unresolved",
			slog.String("attribute", p.fallback.Name()),
			slog.String("outcome", out.Kind.String()),
			slog.String("detail", out.Detail),
		)
	}
	rec.Cells = append(rec.Cells, cell(p.fallback.Name(), out))

	return rec
}

func cell(name string, out snmp.Outcome) Cell {
	return Cell{Name: name, Text: out.Text(), OK: out.OK()}
}
