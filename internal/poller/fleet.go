// Package poller runs device probes across the whole fleet.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nmslite/fleetpoll/internal/inventory"
	"github.com/nmslite/fleetpoll/internal/snmp"
)

// DefaultConcurrency caps in-flight probes when no limit is configured.
const DefaultConcurrency = 32

// DeviceProber builds one device's record. *inventory.Prober satisfies it.
type DeviceProber interface {
	Probe(ctx context.Context, device string) inventory.Record
	Columns() []string
	Sector(device string) string
}

// Fleet fans probes out over a bounded number of goroutines.
type Fleet struct {
	prober        DeviceProber
	concurrency   int
	deviceTimeout time.Duration
	logger        *slog.Logger
}

// Option configures a Fleet.
type Option func(*Fleet)

// WithConcurrency bounds in-flight probes. Values <= 0 select DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(f *Fleet) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithDeviceTimeout bounds a whole device probe. Zero leaves only the
// per-fetch SNMP timeout in effect.
func WithDeviceTimeout(d time.Duration) Option {
	return func(f *Fleet) {
		f.deviceTimeout = d
	}
}

// NewFleet creates a fleet runner.
func NewFleet(prober DeviceProber, logger *slog.Logger, opts ...Option) *Fleet {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fleet{
		prober:      prober,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Result is the outcome of one fleet run.
type Result struct {
	RunID       uuid.UUID
	StartedAt   time.Time
	CompletedAt time.Time
	Records     []inventory.Record
}

// Columns returns the attribute columns of every record in the run.
func (f *Fleet) Columns() []string {
	return f.prober.Columns()
}

// Run probes every device and waits for all of them. Each distinct device
// appears exactly once in the result, in first-seen input order.
func (f *Fleet) Run(ctx context.Context, devices []string) Result {
	res := Result{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	logger := f.logger.With(slog.String("run_id", res.RunID.String()))

	unique := dedupe(devices)
	if len(unique) < len(devices) {
		logger.WarnContext(ctx, "Duplicate devices in poll list collapsed",
			slog.Int("requested", len(devices)),
			slog.Int("unique", len(unique)),
		)
	}

	logger.InfoContext(ctx, "Fleet poll starting",
		slog.Int("devices", len(unique)),
		slog.Int("concurrency", f.concurrency),
	)

	records := make([]inventory.Record, len(unique))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, device := range unique {
		g.Go(func() error {
			records[i] = f.safeProbe(ctx, device, logger)
			return nil
		})
	}
	_ = g.Wait()

	res.Records = records
	res.CompletedAt = time.Now()

	failed := 0
	for _, r := range records {
		failed += r.Failed()
	}
	logger.InfoContext(ctx, "Fleet poll completed",
		slog.Int("devices", len(records)),
		slog.Int("failed_cells", failed),
		slog.Duration("duration", res.CompletedAt.Sub(res.StartedAt)),
	)

	return res
}

// safeProbe runs one probe with panic recovery so a crashing probe still
// yields a record for its device.
func (f *Fleet) safeProbe(ctx context.Context, device string, logger *slog.Logger) (rec inventory.Record) {
	if f.deviceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.deviceTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.ErrorContext(ctx, "Device probe panic",
				slog.String("device", device),
				slog.String("correlation_id", correlationID),
				slog.String("panic", fmt.Sprintf("%v", r)),
				slog.String("stack", string(debug.Stack())),
			)
			rec = failedRecord(device, f.prober.Sector(device), f.prober.Columns(),
				fmt.Sprintf("internal: probe panic (correlation_id: %s)", correlationID))
		}
	}()

	rec = f.prober.Probe(ctx, device)
	if rec.Device == "" {
		rec.Device = device
	}
	return rec
}

func failedRecord(device, sector string, columns []string, detail string) inventory.Record {
	text := snmp.ErrorPrefix + detail
	rec := inventory.Record{Device: device, Sector: sector, Cells: make([]inventory.Cell, len(columns))}
	for i, name := range columns {
		rec.Cells[i] = inventory.Cell{Name: name, Text: text}
	}
	return rec
}

func dedupe(devices []string) []string {
	seen := make(map[string]bool, len(devices))
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
