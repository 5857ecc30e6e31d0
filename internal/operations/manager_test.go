package operations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/litetable/litetable-kvs/internal/backend/memstore"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/ranges"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("empty config", func(t *testing.T) {
		cfg := &Config{}
		got, err := New(cfg)
		require.Error(t, err)
		require.Nil(t, got)
	})

	t.Run("negative defaults", func(t *testing.T) {
		store := newStore(t)
		got, err := New(&Config{
			Store:             store,
			Scanner:           newScanner(t, store),
			DefaultBatchHint:  -1,
			MaxParallelTables: -1,
		})
		require.Error(t, err)
		require.Nil(t, got)
	})

	t.Run("valid config", func(t *testing.T) {
		store := newStore(t)
		got, err := New(&Config{Store: store, Scanner: newScanner(t, store)})
		require.NoError(t, err)
		require.NotNil(t, got)

		require.Equal(t, defaultMaxParallelTables, got.maxParallelTables)
		require.IsType(t, noopRecorder{}, got.metrics)
	})
}

type observation struct {
	op   string
	rows int
	err  error
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (f *fakeRecorder) Observe(op string, _ time.Time, rows int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, observation{op: op, rows: rows, err: err})
}

func newStore(t *testing.T, tables ...string) *memstore.Store {
	t.Helper()
	s, err := memstore.New(&memstore.Config{Tables: tables})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		_ = s.Stop()
	})
	return s
}

func newScanner(t *testing.T, store *memstore.Store) *ranges.Scanner {
	t.Helper()
	s, err := ranges.New(&ranges.Config{Sessions: store})
	require.NoError(t, err)
	return s
}

func newManager(t *testing.T, rec recorder, tables ...string) *Manager {
	t.Helper()
	store := newStore(t, tables...)
	m, err := New(&Config{
		Store:   store,
		Scanner: newScanner(t, store),
		Metrics: rec,
	})
	require.NoError(t, err)
	return m
}

func load(t *testing.T, m *Manager, table string, ts uint64, rows ...string) {
	t.Helper()
	var cells []litetable.CellValue
	for _, r := range rows {
		cells = append(cells, litetable.CellValue{
			Cell:     litetable.Cell{Row: []byte(r), Column: []byte("v")},
			Contents: []byte(r),
		})
	}
	_, err := m.Put(context.Background(), table, cells, ts)
	require.NoError(t, err)
}

func names(rows []litetable.RowResult[litetable.Value]) []string {
	var out []string
	for _, r := range rows {
		out = append(out, string(r.Row))
	}
	return out
}
