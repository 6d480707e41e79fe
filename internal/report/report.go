// Package report renders fleet results as the consolidated CSV report and as
// the JSON document served by the API.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nmslite/fleetpoll/internal/inventory"
	"github.com/nmslite/fleetpoll/internal/poller"
)

// Fixed leading columns of every report.
const (
	ColumnDevice = "IP Address"
	ColumnSector = "Sector"
)

// DefaultPath is where the poll command writes when no path is configured.
const DefaultPath = "printers_info.csv"

// Header returns the report header for the given attribute columns.
func Header(columns []string) []string {
	h := make([]string, 0, len(columns)+2)
	h = append(h, ColumnDevice, ColumnSector)
	return append(h, columns...)
}

// Row flattens a record into header order. Columns the record lacks are
// left empty.
func Row(columns []string, rec inventory.Record) []string {
	row := make([]string, 0, len(columns)+2)
	row = append(row, rec.Device, rec.Sector)
	for _, c := range columns {
		v, _ := rec.Value(c)
		row = append(row, v)
	}
	return row
}

// WriteCSV writes the header and one row per record to w.
func WriteCSV(w io.Writer, columns []string, records []inventory.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(columns)); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(Row(columns, rec)); err != nil {
			return fmt.Errorf("failed to write report row for %s: %w", rec.Device, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// WriteFile writes the report to path. The content goes to a temporary file
// in the same directory first, so a failed write leaves any previous report
// untouched.
func WriteFile(path string, columns []string, records []inventory.Record) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create report file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = WriteCSV(tmp, columns, records); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move report into place at %s: %w", path, err)
	}
	return nil
}

// Device is one entry of the JSON document.
type Device struct {
	IP     string            `json:"ip"`
	Sector string            `json:"sector"`
	Values map[string]string `json:"values"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Document is the JSON rendering of a fleet run.
type Document struct {
	RunID       uuid.UUID `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	DurationMS  int64     `json:"duration_ms"`
	Header      []string  `json:"header"`
	Devices     []Device  `json:"devices"`
}

// NewDocument builds the JSON document for res. Successful cells land in
// Values; failed cells carry their error text in Errors.
func NewDocument(columns []string, res poller.Result) Document {
	doc := Document{
		RunID:       res.RunID,
		GeneratedAt: res.CompletedAt.UTC(),
		DurationMS:  res.CompletedAt.Sub(res.StartedAt).Milliseconds(),
		Header:      Header(columns),
		Devices:     make([]Device, 0, len(res.Records)),
	}
	for _, rec := range res.Records {
		doc.Devices = append(doc.Devices, NewDevice(rec))
	}
	return doc
}

// NewDevice converts a single record.
func NewDevice(rec inventory.Record) Device {
	d := Device{
		IP:     rec.Device,
		Sector: rec.Sector,
		Values: make(map[string]string, len(rec.Cells)),
	}
	for _, c := range rec.Cells {
		if c.OK {
			d.Values[c.Name] = c.Text
			continue
		}
		if d.Errors == nil {
			d.Errors = make(map[string]string)
		}
		d.Errors[c.Name] = c.Text
	}
	return d
}
