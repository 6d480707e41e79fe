package sectors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "standard order",
			input: "IP,Sector\n10.1.1.12,Floor1\n10.1.1.17,Finance\n",
			want:  map[string]string{"10.1.1.12": "Floor1", "10.1.1.17": "Finance"},
		},
		{
			name:  "columns in any order with extras",
			input: "Building,Sector,Notes,IP\nHQ,Reception,,192.168.0.201\n",
			want:  map[string]string{"192.168.0.201": "Reception"},
		},
		{
			name:  "values and header are trimmed",
			input: "\ufeff IP , Sector \n  10.1.1.12  ,  Floor1 \n",
			want:  map[string]string{"10.1.1.12": "Floor1"},
		},
		{
			name:  "rows missing a value are skipped",
			input: "IP,Sector\n10.1.1.12,\n,Floor2\n10.1.1.17\n10.1.1.129,Lab\n",
			want:  map[string]string{"10.1.1.129": "Lab"},
		},
		{
			name:  "duplicate ip keeps last row",
			input: "IP,Sector\n10.1.1.12,Floor1\n10.1.1.12,Floor2\n",
			want:  map[string]string{"10.1.1.12": "Floor2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ReadCSV(strings.NewReader(tt.input), quiet())
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Entries())
		})
	}
}

func TestReadCSV_MissingColumns(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"no sector column", "IP,Floor\n10.1.1.12,1\n"},
		{"no ip column", "Address,Sector\n10.1.1.12,Floor1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), quiet())
			assert.ErrorIs(t, err, ErrMissingColumn)
		})
	}
}

func TestReadCSV_MalformedQuoting(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("IP,Sector\n\"10.1.1.12,Floor1\n"), quiet())
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ip_sector.csv")
	require.NoError(t, os.WriteFile(path, []byte("IP,Sector\n10.1.1.12,Floor1\n"), 0o644))

	m, err := LoadCSV(path, quiet())
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), quiet())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMap_SectorSentinel(t *testing.T) {
	m, err := ReadCSV(strings.NewReader("IP,Sector\n10.1.1.12,Floor1\n"), quiet())
	require.NoError(t, err)

	assert.Equal(t, "Floor1", m.Sector("10.1.1.12"))
	assert.Equal(t, NotFound, m.Sector("10.1.1.99"))

	_, ok := m.Lookup("10.1.1.99")
	assert.False(t, ok)

	var nilMap *Map
	assert.Equal(t, NotFound, nilMap.Sector("10.1.1.12"))
	assert.Zero(t, nilMap.Len())
}

func TestNew_DropsBlankEntries(t *testing.T) {
	m := New(map[string]string{" 10.1.1.12 ": " Floor1 ", "": "x", "10.1.1.13": " "})
	assert.Equal(t, map[string]string{"10.1.1.12": "Floor1"}, m.Entries())
	assert.Equal(t, []string{"10.1.1.12"}, m.IPs())
}

type fakeBatchResults struct {
	execErr error
	execs   int
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	f.execs++
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}
func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("unused") }
func (f *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (f *fakeBatchResults) Close() error             { return nil }

type fakeQuerier struct {
	batch   *pgx.Batch
	results *fakeBatchResults
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("connection refused")
}

func (f *fakeQuerier) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batch = b
	return f.results
}

func TestImport(t *testing.T) {
	q := &fakeQuerier{results: &fakeBatchResults{}}
	m := New(map[string]string{"10.1.1.12": "Floor1", "10.1.1.17": "Finance"})

	n, err := Import(context.Background(), q, m, quiet())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, q.batch.Len())
	assert.Equal(t, 2, q.results.execs)
}

func TestImport_Failure(t *testing.T) {
	q := &fakeQuerier{results: &fakeBatchResults{execErr: errors.New("relation \"ip_sectors\" does not exist")}}

	_, err := Import(context.Background(), q, New(map[string]string{"10.1.1.12": "Floor1"}), quiet())
	assert.ErrorContains(t, err, "10.1.1.12")
}

func TestImport_Empty(t *testing.T) {
	q := &fakeQuerier{}
	n, err := Import(context.Background(), q, New(nil), quiet())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, q.batch)
}

func TestLoadPostgres_QueryError(t *testing.T) {
	_, err := LoadPostgres(context.Background(), &fakeQuerier{})
	assert.ErrorContains(t, err, "ip_sectors")
}
