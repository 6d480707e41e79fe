package sectors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of *pgxpool.Pool the loaders need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type row struct {
	IP     string `db:"ip"`
	Sector string `db:"sector"`
}

const (
	selectSectorsSQL = `SELECT ip, sector FROM ip_sectors`
	upsertSectorSQL  = `
INSERT INTO ip_sectors (ip, sector, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (ip) DO UPDATE SET sector = EXCLUDED.sector, updated_at = now()`
)

// LoadPostgres reads the mapping from the ip_sectors table.
func LoadPostgres(ctx context.Context, q Querier) (*Map, error) {
	rows, err := q.Query(ctx, selectSectorsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip_sectors: %w", err)
	}

	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[row])
	if err != nil {
		return nil, fmt.Errorf("failed to scan ip_sectors: %w", err)
	}

	entries := make(map[string]string, len(collected))
	for _, r := range collected {
		entries[r.IP] = r.Sector
	}
	return New(entries), nil
}

// Import upserts every entry of m into ip_sectors in one batch.
func Import(ctx context.Context, q Querier, m *Map, logger *slog.Logger) (int, error) {
	if m.Len() == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	entries := m.Entries()
	for _, ip := range m.IPs() {
		batch.Queue(upsertSectorSQL, ip, entries[ip])
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for _, ip := range m.IPs() {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("failed to upsert sector for %s: %w", ip, err)
		}
	}

	if logger != nil {
		logger.InfoContext(ctx, "Sector mapping imported", slog.Int("rows", m.Len()))
	}
	return m.Len(), nil
}
