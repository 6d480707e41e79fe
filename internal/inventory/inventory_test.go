package inventory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/nmslite/fleetpoll/internal/snmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedFetcher struct {
	mu       sync.Mutex
	outcomes map[string]snmp.Outcome
	calls    []string
	closed   bool
}

func (f *scriptedFetcher) Fetch(_ context.Context, oid string) snmp.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, oid)
	if out, ok := f.outcomes[oid]; ok {
		return out
	}
	return snmp.NotFound("noSuchName at " + oid)
}

func (f *scriptedFetcher) Close() error {
	f.closed = true
	return nil
}

type fakeDialer struct {
	fetcher *scriptedFetcher
	err     error
}

func (d *fakeDialer) Dial(context.Context, string) (snmp.Fetcher, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.fetcher, nil
}

type mapSectors map[string]string

func (m mapSectors) Sector(device string) string {
	if s, ok := m[device]; ok {
		return s
	}
	return "N/A - sector not found"
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustFallback(t *testing.T, oids ...string) FallbackSpec {
	t.Helper()
	f, err := NewFallbackSpec("Serial Number", oids...)
	require.NoError(t, err)
	return f
}

func TestResolve_SecondCandidateWinsAfterNotFound(t *testing.T) {
	f := &scriptedFetcher{outcomes: map[string]snmp.Outcome{
		"1.1": snmp.NotFound("noSuchName at 1.1"),
		"2.2": snmp.Value("X"),
	}}

	got := Resolve(context.Background(), f, mustFallback(t, "1.1", "2.2"))

	assert.Equal(t, snmp.Value("X"), got)
	assert.Equal(t, []string{"1.1", "2.2"}, f.calls)
}

func TestResolve_FirstValueStopsSearch(t *testing.T) {
	f := &scriptedFetcher{outcomes: map[string]snmp.Outcome{
		"1.1": snmp.Value("E76543210"),
		"2.2": snmp.Value("unused"),
	}}

	got := Resolve(context.Background(), f, mustFallback(t, "1.1", "2.2"))

	assert.Equal(t, snmp.Value("E76543210"), got)
	assert.Equal(t, []string{"1.1"}, f.calls)
}

func TestResolve_ErrorShortCircuits(t *testing.T) {
	tests := []struct {
		name string
		out  snmp.Outcome
	}{
		{"protocol error", snmp.ProtocolError("E")},
		{"transport error", snmp.TransportError("request timeout (after 1 retries)")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &scriptedFetcher{outcomes: map[string]snmp.Outcome{
				"1.1": tt.out,
				"2.2": snmp.Value("X"),
			}}

			got := Resolve(context.Background(), f, mustFallback(t, "1.1", "2.2"))

			assert.Equal(t, tt.out, got)
			assert.Equal(t, []string{"1.1"}, f.calls, "second candidate must not be attempted")
		})
	}
}

func TestResolve_AllNotFound(t *testing.T) {
	f := &scriptedFetcher{}

	got := Resolve(context.Background(), f, mustFallback(t, "1.1", "2.2"))

	assert.Equal(t, snmp.KindNotFound, got.Kind)
	assert.Equal(t, "Serial Number not found on this device", got.Detail)
	assert.Equal(t, []string{"1.1", "2.2"}, f.calls)
}

func TestResolve_NoCandidates(t *testing.T) {
	f := &scriptedFetcher{}

	got := Resolve(context.Background(), f, mustFallback(t))

	assert.Equal(t, snmp.KindNotFound, got.Kind)
	assert.Empty(t, f.calls)
}

func TestNewAttributeSet(t *testing.T) {
	set, err := NewAttributeSet(
		AttributeSpec{Name: " Printer Model ", OID: ".1.3.6.1.2.1.1.1.0"},
		AttributeSpec{Name: "Device Status", OID: "1.3.6.1.2.1.25.3.2.1.5.1"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Printer Model", "Device Status"}, set.Names())
	assert.Equal(t, "1.3.6.1.2.1.1.1.0", set.Specs()[0].OID)

	// callers cannot mutate the set through the returned slice
	specs := set.Specs()
	specs[0].Name = "changed"
	assert.Equal(t, "Printer Model", set.Names()[0])

	_, err = NewAttributeSet(AttributeSpec{Name: "", OID: "1.3"})
	assert.Error(t, err)
	_, err = NewAttributeSet(AttributeSpec{Name: "A", OID: " "})
	assert.Error(t, err)
	_, err = NewAttributeSet(AttributeSpec{Name: "A", OID: "1.3"}, AttributeSpec{Name: "A", OID: "1.4"})
	assert.ErrorContains(t, err, "duplicate")
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, []string{"Printer Model", "Total Page Count", "Device Status"}, DefaultAttributes().Names())

	fb := DefaultFallback()
	assert.Equal(t, "Serial Number", fb.Name())
	assert.Equal(t, []string{OIDPrtGeneralSerialNum, OIDRicohSerialNumber}, fb.OIDs())
}

func TestNewProber_RejectsFallbackNameClash(t *testing.T) {
	attrs, err := NewAttributeSet(AttributeSpec{Name: "Serial Number", OID: "1.3"})
	require.NoError(t, err)

	_, err = NewProber(&fakeDialer{}, attrs, DefaultFallback(), mapSectors{}, quietLogger())
	assert.Error(t, err)
}

func TestProber_Probe(t *testing.T) {
	f := &scriptedFetcher{outcomes: map[string]snmp.Outcome{
		OIDSysDescr:           snmp.Value("RICOH MP 305+"),
		OIDPrtMarkerLifeCount: snmp.TransportError("request timeout (after 1 retries)"),
		OIDHrDeviceStatus:     snmp.Value("2"),
		OIDRicohSerialNumber:  snmp.Value("C123P400111"),
	}}
	p, err := NewProber(&fakeDialer{fetcher: f}, DefaultAttributes(), DefaultFallback(),
		mapSectors{"10.1.1.12": "Floor1"}, quietLogger())
	require.NoError(t, err)

	rec := p.Probe(context.Background(), "10.1.1.12")

	assert.Equal(t, "10.1.1.12", rec.Device)
	assert.Equal(t, "Floor1", rec.Sector)
	assert.Equal(t, []Cell{
		{Name: "Printer Model", Text: "RICOH MP 305+", OK: true},
		{Name: "Total Page Count", Text: "Error: transport: request timeout (after 1 retries)", OK: false},
		{Name: "Device Status", Text: "2", OK: true},
		{Name: "Serial Number", Text: "C123P400111", OK: true},
	}, rec.Cells)
	assert.Equal(t, 1, rec.Failed())

	// attributes are fetched in declared order, then the fallback chain
	assert.Equal(t, []string{
		OIDSysDescr, OIDPrtMarkerLifeCount, OIDHrDeviceStatus,
		OIDPrtGeneralSerialNum, OIDRicohSerialNumber,
	}, f.calls)
	assert.True(t, f.closed)
}

func TestProber_ProbeUnmappedDevice(t *testing.T) {
	f := &scriptedFetcher{}
	p, err := NewProber(&fakeDialer{fetcher: f}, DefaultAttributes(), DefaultFallback(), mapSectors{}, quietLogger())
	require.NoError(t, err)

	rec := p.Probe(context.Background(), "10.1.1.99")

	assert.Equal(t, "N/A - sector not found", rec.Sector)
	serial, ok := rec.Value("Serial Number")
	require.True(t, ok)
	assert.Equal(t, "Error: Serial Number not found on this device", serial)
	model, _ := rec.Value("Printer Model")
	assert.Equal(t, "Error: noSuchName at "+OIDSysDescr, model)
}

func TestProber_DialFailureFillsEveryCell(t *testing.T) {
	p, err := NewProber(&fakeDialer{err: errors.New("lookup printer-3f: no such host")},
		DefaultAttributes(), DefaultFallback(), mapSectors{}, quietLogger())
	require.NoError(t, err)

	rec := p.Probe(context.Background(), "printer-3f")

	require.Len(t, rec.Cells, 4)
	for _, c := range rec.Cells {
		assert.False(t, c.OK)
		assert.True(t, strings.HasPrefix(c.Text, "Error: transport: "), c.Text)
	}
	assert.Equal(t, []string{"Printer Model", "Total Page Count", "Device Status", "Serial Number"}, p.Columns())
}
