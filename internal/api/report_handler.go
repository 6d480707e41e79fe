package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/nmslite/fleetpoll/internal/inventory"
	"github.com/nmslite/fleetpoll/internal/poller"
	"github.com/nmslite/fleetpoll/internal/report"
)

// FleetRunner polls a device list. *poller.Fleet satisfies it.
type FleetRunner interface {
	Run(ctx context.Context, devices []string) poller.Result
	Columns() []string
}

// DeviceProber polls a single device. *inventory.Prober satisfies it.
type DeviceProber interface {
	Probe(ctx context.Context, device string) inventory.Record
}

// SectorSource lists the loaded mapping. *sectors.Map satisfies it.
type SectorSource interface {
	IPs() []string
	Sector(ip string) string
}

// ReportHandler runs polls on demand.
type ReportHandler struct {
	fleet   FleetRunner
	prober  DeviceProber
	sectors SectorSource
	devices []string
	logger  *slog.Logger

	running atomic.Bool
}

// NewReportHandler creates a report handler polling devices.
func NewReportHandler(fleet FleetRunner, prober DeviceProber, sectors SectorSource, devices []string, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		fleet:   fleet,
		prober:  prober,
		sectors: sectors,
		devices: devices,
		logger:  logger,
	}
}

// Report handles GET /api/v1/report?format=csv|json. Only one run may be in
// flight; overlapping requests get 409.
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		sendError(w, r, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or json", nil)
		return
	}

	if !h.running.CompareAndSwap(false, true) {
		sendError(w, r, http.StatusConflict, "POLL_IN_PROGRESS", "A fleet poll is already running", nil)
		return
	}
	defer h.running.Store(false)

	res := h.fleet.Run(r.Context(), h.devices)
	columns := h.fleet.Columns()

	if format == "json" {
		sendJSON(w, http.StatusOK, report.NewDocument(columns, res))
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, columns, res.Records); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render report",
			slog.String("run_id", res.RunID.String()),
			slog.Any("error", err),
		)
		sendError(w, r, http.StatusInternalServerError, "REPORT_ERROR", "Failed to render report", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.DefaultPath+`"`)
	w.Header().Set("X-Run-ID", res.RunID.String())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Device handles GET /api/v1/devices/{ip}
func (h *ReportHandler) Device(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if _, err := netip.ParseAddr(ip); err != nil {
		sendError(w, r, http.StatusBadRequest, "INVALID_IP", "Invalid IP address", err.Error())
		return
	}

	rec := h.prober.Probe(r.Context(), ip)
	sendJSON(w, http.StatusOK, report.NewDevice(rec))
}

// SectorEntry is one row of the sector listing.
type SectorEntry struct {
	IP     string `json:"ip"`
	Sector string `json:"sector"`
}

// Sectors handles GET /api/v1/sectors
func (h *ReportHandler) Sectors(w http.ResponseWriter, _ *http.Request) {
	ips := h.sectors.IPs()
	entries := make([]SectorEntry, 0, len(ips))
	for _, ip := range ips {
		entries = append(entries, SectorEntry{IP: ip, Sector: h.sectors.Sector(ip)})
	}
	sendJSON(w, http.StatusOK, entries)
}
