package ranges

import (
	"context"
	"errors"
	"testing"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
	"github.com/stretchr/testify/require"
)

func TestGetRows(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	store := newStore(t, "a", "b")
	req.NoError(store.Put(ctx, table, []litetable.CellValue{{
		Cell:     litetable.Cell{Row: []byte("a"), Column: []byte("v")},
		Contents: []byte("a7"),
	}}, 7))
	scanner := newScanner(t, store)

	got, err := scanner.GetRows(ctx, table,
		[][]byte{[]byte("b"), []byte("missing"), []byte("a"), []byte("b")},
		litetable.AllColumns(), 5, trace.Disabled())
	req.NoError(err)
	req.Len(got, 2)
	req.Equal([]byte("a"), got[0].Row, "rows come back ascending")
	v, ok := got[0].Get([]byte("v"))
	req.True(ok)
	req.Equal([]byte("a"), v.Contents, "the version at ts 7 is not visible at 5")

	got, err = scanner.GetRows(ctx, table, [][]byte{[]byte("a")}, litetable.AllColumns(), 8, nil)
	req.NoError(err)
	v, _ = got[0].Get([]byte("v"))
	req.Equal(uint64(7), v.Timestamp)

	_, err = scanner.GetRows(ctx, table, [][]byte{nil}, litetable.AllColumns(), 8, nil)
	req.True(errors.Is(err, litetable.ErrInvalidName))

	got, err = scanner.GetRows(ctx, table, nil, litetable.AllColumns(), 8, nil)
	req.NoError(err)
	req.Nil(got)
}

func TestGetLatestTimestamps(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	store := newStore(t, "a")
	req.NoError(store.Put(ctx, table, []litetable.CellValue{{
		Cell:     litetable.Cell{Row: []byte("a"), Column: []byte("w")},
		Contents: []byte("w3"),
	}}, 3))
	scanner := newScanner(t, store)

	got, err := scanner.GetLatestTimestamps(ctx, table, [][]byte{[]byte("a")},
		litetable.SelectColumns([]byte("w")), 10, nil)
	req.NoError(err)
	req.Len(got, 1)
	req.Equal([][]byte{[]byte("w")}, got[0].ColumnNames())
	ts, _ := got[0].Get([]byte("w"))
	req.Equal(uint64(3), ts)
}

func TestGetVersions(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	store := newStore(t, "a", "b", "c")
	for _, ts := range []uint64{4, 9} {
		req.NoError(store.Put(ctx, table, []litetable.CellValue{{
			Cell:     litetable.Cell{Row: []byte("b"), Column: []byte("v")},
			Contents: []byte("b"),
		}}, ts))
	}
	scanner := newScanner(t, store)

	page, err := scanner.GetVersions(ctx, table, litetable.MustRangeRequest(
		litetable.WithStart([]byte("b")), litetable.WithBatchHint(1)), 9, nil)
	req.NoError(err)
	req.Equal([]string{"b"}, rowNames(page))
	versions, _ := page.Rows[0].Get([]byte("v"))
	req.Equal([]uint64{1, 4}, versions, "versions at or after the read timestamp are hidden")
	req.Equal(litetable.Token{NextStart: []byte("b\x00"), HasMore: true}, page.Token)

	direct, err := scanner.GetRangePage(ctx, table, litetable.MustRangeRequest(
		litetable.WithStart([]byte("b")), litetable.WithBatchHint(1)), 9, nil)
	req.NoError(err)
	req.Equal(direct.Token, page.Token, "versions page like values")
}
