package operations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/reaper"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	queued []reaper.ReapParams
	err    error
}

func (f *fakeSweeper) Reap(_ context.Context, p *reaper.ReapParams) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, *p)
	return nil
}

func TestManager_Sweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := map[string]struct {
		sweeper     *fakeSweeper
		table       string
		before      uint64
		expectedErr error
	}{
		"queued": {
			sweeper: &fakeSweeper{},
			table:   "t",
			before:  9,
		},
		"disabled": {
			table:       "t",
			before:      9,
			expectedErr: litetable.ErrInvalidRequest,
		},
		"unknown table": {
			sweeper:     &fakeSweeper{},
			table:       "missing",
			before:      9,
			expectedErr: litetable.ErrTableNotFound,
		},
		"zero timestamp": {
			sweeper:     &fakeSweeper{},
			table:       "t",
			expectedErr: litetable.ErrInvalidTimestamp,
		},
		"reaper stopped": {
			sweeper:     &fakeSweeper{err: reaper.ErrStopped},
			table:       "t",
			before:      9,
			expectedErr: reaper.ErrStopped,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			rec := &fakeRecorder{}
			m := newManager(t, rec, "t")
			if tc.sweeper != nil {
				m.sweeper = tc.sweeper
			}

			err := m.Sweep(ctx, tc.table, tc.before)
			req.Len(rec.obs, 1)
			req.Equal(OpSweep, rec.obs[0].op)
			if tc.expectedErr != nil {
				req.True(errors.Is(err, tc.expectedErr), "expected %v to wrap %v", err,
					tc.expectedErr)
				return
			}
			req.NoError(err)
			req.Equal([]reaper.ReapParams{{Table: tc.table, Before: tc.before}},
				tc.sweeper.queued)
		})
	}
}

func TestManager_Sweep_Reaper(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	store := newStore(t, "t")
	scanner := newScanner(t, store)

	r, err := reaper.New(&reaper.Config{Scanner: scanner, Store: store, Interval: time.Hour})
	req.NoError(err)
	req.NoError(r.Start())
	defer r.Stop()

	m, err := New(&Config{Store: store, Scanner: scanner, Sweeper: r})
	req.NoError(err)

	row := [][]byte{[]byte("r")}
	for _, ts := range []uint64{1, 5} {
		_, err := m.Put(ctx, "t", []litetable.CellValue{{
			Cell:     litetable.Cell{Row: row[0], Column: []byte("c")},
			Contents: []byte("v"),
		}}, ts)
		req.NoError(err)
	}

	req.NoError(m.Sweep(ctx, "t", 10))
	req.Eventually(func() bool {
		rows, err := m.GetLatestTimestamps(ctx, "t", row, litetable.AllColumns(), 5)
		return err == nil && len(rows) == 0
	}, 5*time.Second, 10*time.Millisecond, "the version at 1 is shadowed by 5 and removed")
}
