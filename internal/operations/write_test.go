package operations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/stretchr/testify/require"
)

func TestManager_Put(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cell := litetable.CellValue{
		Cell:     litetable.Cell{Row: []byte("r"), Column: []byte("c")},
		Contents: []byte("v"),
	}

	tests := map[string]struct {
		cells       []litetable.CellValue
		ts          uint64
		expectedTs  uint64
		expectedErr error
	}{
		"explicit timestamp": {
			cells:      []litetable.CellValue{cell},
			ts:         7,
			expectedTs: 7,
		},
		"clock timestamp": {
			cells:      []litetable.CellValue{cell},
			expectedTs: uint64(time.Unix(100, 0).UnixMicro()),
		},
		"no cells": {
			expectedErr: litetable.ErrInvalidRequest,
		},
		"bad row": {
			cells: []litetable.CellValue{{
				Cell: litetable.Cell{Column: []byte("c")},
			}},
			ts:          1,
			expectedErr: litetable.ErrInvalidName,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			m := newManager(t, nil, "t")
			m.now = func() time.Time { return time.Unix(100, 0) }

			got, err := m.Put(ctx, "t", tc.cells, tc.ts)
			if tc.expectedErr != nil {
				req.True(errors.Is(err, tc.expectedErr), "expected %v to wrap %v", err,
					tc.expectedErr)
				return
			}
			req.NoError(err)
			req.Equal(tc.expectedTs, got)

			rows, err := m.GetLatestTimestamps(ctx, "t", [][]byte{[]byte("r")},
				litetable.AllColumns(), 0)
			req.NoError(err)
			ts, _ := rows[0].Get([]byte("c"))
			req.Equal(tc.expectedTs, ts)
		})
	}
}

func TestManager_CreateTable(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	m := newManager(t, nil)

	req.True(errors.Is(m.CreateTable(ctx, "bad-name"), litetable.ErrInvalidRequest))
	req.NoError(m.CreateTable(ctx, "fresh"))
	req.NoError(m.CreateTable(ctx, "fresh"), "creating twice is a no-op")
	page, err := m.GetRangePage(ctx, "fresh", litetable.All(), 0)
	req.NoError(err)
	req.True(page.IsEnd())
}
