package reaper

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/litetable/litetable-kvs/internal/backend/memstore"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/ranges"
	"github.com/stretchr/testify/require"
)

const table = "t"

type countingRecorder struct {
	n atomic.Int64
}

func (c *countingRecorder) Swept(n int) {
	c.n.Add(int64(n))
}

// newStore writes row "b" column "v" at ts 1, 4 and 9, and row "a" once at ts 1.
func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s, err := memstore.New(&memstore.Config{Tables: []string{table}})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		_ = s.Stop()
	})

	put := func(row string, ts uint64) {
		require.NoError(t, s.Put(ctx, table, []litetable.CellValue{{
			Cell:     litetable.Cell{Row: []byte(row), Column: []byte("v")},
			Contents: []byte{byte(ts)},
		}}, ts))
	}
	put("a", 1)
	for _, ts := range []uint64{1, 4, 9} {
		put("b", ts)
	}
	return s
}

func newReaper(t *testing.T, store *memstore.Store, cfg Config) *Reaper {
	t.Helper()
	scanner, err := ranges.New(&ranges.Config{Sessions: store})
	require.NoError(t, err)
	cfg.Scanner = scanner
	cfg.Store = store
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	r, err := New(&cfg)
	require.NoError(t, err)
	return r
}

func versionsOf(t *testing.T, store *memstore.Store, row string) []uint64 {
	t.Helper()
	scanner, err := ranges.New(&ranges.Config{Sessions: store})
	require.NoError(t, err)
	page, err := scanner.GetVersions(context.Background(), table, litetable.MustRangeRequest(
		litetable.WithStart([]byte(row)), litetable.WithBatchHint(1)), 100, nil)
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	v, _ := page.Rows[0].Get([]byte("v"))
	return v
}

func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("empty config", func(t *testing.T) {
		got, err := New(&Config{})
		require.Error(t, err)
		require.Nil(t, got)
	})

	t.Run("defaults", func(t *testing.T) {
		r := newReaper(t, newStore(t), Config{})
		require.Equal(t, defaultBatchSize, r.batchSize)
		require.Empty(t, r.filePath)
	})
}

func TestSweep(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		before   uint64
		removed  int
		expected []uint64
	}{
		"nothing old enough":    {before: 1, removed: 0, expected: []uint64{1, 4, 9}},
		"one version below":     {before: 4, removed: 0, expected: []uint64{1, 4, 9}},
		"keeps newest below":    {before: 9, removed: 1, expected: []uint64{4, 9}},
		"keeps only the newest": {before: 100, removed: 2, expected: []uint64{9}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			store := newStore(t)
			rec := &countingRecorder{}
			r := newReaper(t, store, Config{Metrics: rec, BatchSize: 1})

			removed, err := r.Sweep(context.Background(), table, tc.before)
			req.NoError(err)
			req.Equal(tc.removed, removed)
			req.Equal(int64(tc.removed), rec.n.Load())
			req.Equal(tc.expected, versionsOf(t, store, "b"))
			req.Equal([]uint64{1}, versionsOf(t, store, "a"))
		})
	}
}

func TestSweep_UnknownTable(t *testing.T) {
	t.Parallel()
	r := newReaper(t, newStore(t), Config{})
	_, err := r.Sweep(context.Background(), "missing", 10)
	require.ErrorIs(t, err, litetable.ErrTableNotFound)
}

func TestReaper_Reap(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	store := newStore(t)
	dir := t.TempDir()
	r := newReaper(t, store, Config{Path: dir})
	req.NoError(r.Start())
	defer r.Stop()

	req.NoError(r.Reap(context.Background(), &ReapParams{Table: table, Before: 100}))
	req.Eventually(func() bool {
		return len(versionsOf(t, store, "b")) == 1
	}, 5*time.Second, 10*time.Millisecond)

	req.Eventually(func() bool {
		data, err := os.ReadFile(filepath.Join(dir, reaperFile))
		return err == nil && len(data) == 0
	}, 5*time.Second, 10*time.Millisecond, "swept requests leave the log")
}

func TestReaper_Reap_Rejected(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		params  ReapParams
		stopped bool
		wantErr error
	}{
		"missing table": {
			params: ReapParams{Before: 10},
		},
		"missing timestamp": {
			params: ReapParams{Table: table},
		},
		"stopped": {
			params:  ReapParams{Table: table, Before: 10},
			stopped: true,
			wantErr: ErrStopped,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			r := newReaper(t, newStore(t), Config{})
			if tc.stopped {
				// fill the queue so only the stopped reaper can answer
				for i := 0; i < cap(r.collector); i++ {
					r.collector <- tc.params
				}
				r.cancel()
			}
			err := r.Reap(context.Background(), &tc.params)
			req.Error(err)
			if tc.wantErr != nil {
				req.ErrorIs(err, tc.wantErr)
			}
		})
	}
}

func TestReaper_Reap_Persisted(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	store := newStore(t)
	dir := t.TempDir()
	r := newReaper(t, store, Config{Path: dir})

	// not started: the request is recorded by the loop once it runs
	req.NoError(r.Reap(context.Background(), &ReapParams{Table: table, Before: 9}))
	req.NoError(r.Start())
	defer r.Stop()

	req.Eventually(func() bool {
		return len(versionsOf(t, store, "b")) == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestReaper_ResumesPending(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	store := newStore(t)
	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, reaperFile),
		[]byte("{\"table\":\"t\",\"before\":9}\nnot json\n{\"table\":\"gone\",\"before\":9}\n"), 0640))

	r := newReaper(t, store, Config{Path: dir})
	req.NoError(r.Start())
	defer r.Stop()

	req.Eventually(func() bool {
		return len(versionsOf(t, store, "b")) == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestReaper_Interval(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	r := newReaper(t, store, Config{
		Tables:   []string{table},
		Interval: 10 * time.Millisecond,
	})
	// every version is older than the retention window
	r.now = func() time.Time { return time.UnixMicro(1000) }
	require.NoError(t, r.Start())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return len(versionsOf(t, store, "b")) == 1
	}, 5*time.Second, 10*time.Millisecond)
}
