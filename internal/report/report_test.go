package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nmslite/fleetpoll/internal/inventory"
	"github.com/nmslite/fleetpoll/internal/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"Printer Model", "Total Page Count", "Device Status", "Serial Number"}

func sampleRecords() []inventory.Record {
	return []inventory.Record{
		{
			Device: "10.1.1.12",
			Sector: "Floor1",
			Cells: []inventory.Cell{
				{Name: "Printer Model", Text: "RICOH MP C3004, Ricoh Network Printer", OK: true},
				{Name: "Total Page Count", Text: "184213", OK: true},
				{Name: "Device Status", Text: "2", OK: true},
				{Name: "Serial Number", Text: "E175M230451", OK: true},
			},
		},
		{
			Device: "10.1.1.99",
			Sector: "N/A - sector not found",
			Cells: []inventory.Cell{
				{Name: "Printer Model", Text: "Error: transport: request timeout"},
				{Name: "Total Page Count", Text: "Error: transport: request timeout"},
				{Name: "Device Status", Text: "Error: transport: request timeout"},
				{Name: "Serial Number", Text: "Error: transport: request timeout"},
			},
		},
	}
}

func TestHeader(t *testing.T) {
	assert.Equal(t,
		[]string{"IP Address", "Sector", "Printer Model", "Total Page Count", "Device Status", "Serial Number"},
		Header(columns),
	)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, columns, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Header(columns), rows[0])
	assert.Equal(t, []string{"10.1.1.12", "Floor1", "RICOH MP C3004, Ricoh Network Printer", "184213", "2", "E175M230451"}, rows[1])
	assert.Equal(t, "10.1.1.99", rows[2][0])
	assert.Equal(t, "N/A - sector not found", rows[2][1])
	for _, cell := range rows[2][2:] {
		assert.True(t, strings.HasPrefix(cell, "Error: "), cell)
	}
}

func TestRow_MissingColumnIsEmpty(t *testing.T) {
	rec := inventory.Record{Device: "10.1.1.12", Sector: "Floor1"}
	assert.Equal(t, []string{"10.1.1.12", "Floor1", "", "", "", ""}, Row(columns, rec))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultPath)

	require.NoError(t, WriteFile(path, columns, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "IP Address,Sector,Printer Model"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file left behind")
}

func TestWriteFile_UnwritableDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", DefaultPath)

	err := WriteFile(path, columns, sampleRecords())
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestNewDocument(t *testing.T) {
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	res := poller.Result{
		RunID:       uuid.New(),
		StartedAt:   started,
		CompletedAt: started.Add(1500 * time.Millisecond),
		Records:     sampleRecords(),
	}

	doc := NewDocument(columns, res)
	assert.Equal(t, res.RunID, doc.RunID)
	assert.Equal(t, int64(1500), doc.DurationMS)
	require.Len(t, doc.Devices, 2)

	ok := doc.Devices[0]
	assert.Equal(t, "E175M230451", ok.Values["Serial Number"])
	assert.Empty(t, ok.Errors)

	failed := doc.Devices[1]
	assert.Empty(t, failed.Values)
	assert.Len(t, failed.Errors, 4)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"run_id":"`+res.RunID.String()+`"`)
	assert.NotContains(t, string(mustMarshal(t, ok)), `"errors"`)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
