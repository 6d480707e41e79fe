package sectors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Required header names of the mapping file.
const (
	ColumnIP     = "IP"
	ColumnSector = "Sector"
)

// ErrMissingColumn is returned when the mapping header lacks a required column.
var ErrMissingColumn = errors.New("sector mapping is missing a required column")

// LoadCSV reads a mapping file with header-named IP and Sector columns in
// any order. Rows missing either value are skipped with a warning.
func LoadCSV(path string, logger *slog.Logger) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sector mapping file %q: %w", path, err)
	}
	defer f.Close()

	m, err := ReadCSV(f, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read sector mapping file %q: %w", path, err)
	}
	return m, nil
}

// ReadCSV parses a mapping table from r.
func ReadCSV(r io.Reader, logger *slog.Logger) (*Map, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	ipCol, sectorCol := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case ColumnIP:
			ipCol = i
		case ColumnSector:
			sectorCol = i
		}
	}
	if ipCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnIP)
	}
	if sectorCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnSector)
	}

	entries := make(map[string]string)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse row: %w", err)
		}
		line++

		ip, sector := field(row, ipCol), field(row, sectorCol)
		if ip == "" || sector == "" {
			logger.Warn("Skipping sector mapping row with missing IP or Sector",
				slog.Int("line", line),
				slog.String("row", strings.Join(row, ",")),
			)
			continue
		}
		if prev, ok := entries[ip]; ok && prev != sector {
			logger.Warn("Duplicate IP in sector mapping, last row wins",
				slog.String("ip", ip),
				slog.String("previous", prev),
				slog.String("sector", sector),
			)
		}
		entries[ip] = sector
	}

	return New(entries), nil
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
