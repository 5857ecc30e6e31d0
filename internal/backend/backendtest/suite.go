// Package backendtest holds the behaviour every backend.Store must share, run by each backend's
// own tests.
package backendtest

import (
	"context"
	"errors"
	"testing"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/stretchr/testify/require"
)

// Table is the table Load fills.
const Table = "fixture"

// Load creates Table with rows "a" to "e" holding column "v" at ts 1, an extra column "w" on "c"
// at ts 5, and row "z" whose only version is at ts 10.
func Load(t *testing.T, s backend.Store) {
	t.Helper()
	ctx := context.Background()
	req := require.New(t)

	req.NoError(s.CreateTable(ctx, Table))
	var cells []litetable.CellValue
	for _, r := range []string{"a", "b", "c", "d", "e"} {
		cells = append(cells, cell(r, "v", r))
	}
	req.NoError(s.Put(ctx, Table, cells, 1))
	req.NoError(s.Put(ctx, Table, []litetable.CellValue{cell("c", "w", "c5")}, 5))
	req.NoError(s.Put(ctx, Table, []litetable.CellValue{cell("z", "v", "z10")}, 10))
}

func cell(row, col, val string) litetable.CellValue {
	return litetable.CellValue{
		Cell:     litetable.Cell{Row: []byte(row), Column: []byte(col)},
		Contents: []byte(val),
	}
}

func rows(names ...string) [][]byte {
	if len(names) == 0 {
		return nil
	}
	out := make([][]byte, len(names))
	for i, n := range names {
		out[i] = []byte(n)
	}
	return out
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) backend.Store) {
	ctx := context.Background()

	t.Run("dispatch", func(t *testing.T) {
		s := newStore(t)
		Load(t, s)

		tests := map[string]struct {
			queries  []backend.SubQuery
			readTs   uint64
			expected map[int][][]byte
		}{
			"forward from the first row": {
				queries: []backend.SubQuery{{BatchIndex: 0, Start: litetable.FirstRowName(),
					Limit: 2}},
				readTs:   100,
				expected: map[int][][]byte{0: rows("a", "b")},
			},
			"reverse skips rows with no visible version": {
				queries: []backend.SubQuery{{BatchIndex: 0, Start: litetable.LastRowName(),
					Reverse: true, Limit: 3}},
				readTs:   5,
				expected: map[int][][]byte{0: rows("e", "d", "c")},
			},
			"bounded forward": {
				queries: []backend.SubQuery{{BatchIndex: 0, Start: []byte("b"),
					End: []byte("d"), Limit: 10}},
				readTs:   100,
				expected: map[int][][]byte{0: rows("b", "c")},
			},
			"bounded reverse": {
				queries: []backend.SubQuery{{BatchIndex: 0, Start: []byte("d"),
					End: []byte("a"), Reverse: true, Limit: 10}},
				readTs:   100,
				expected: map[int][][]byte{0: rows("d", "c", "b")},
			},
			"reverse start between rows": {
				queries: []backend.SubQuery{{BatchIndex: 0, Start: []byte("cc"),
					Reverse: true, Limit: 2}},
				readTs:   100,
				expected: map[int][][]byte{0: rows("c", "b")},
			},
			"many queries in one dispatch": {
				queries: []backend.SubQuery{
					{BatchIndex: 0, Start: []byte("a"), End: []byte("c"), Limit: 5},
					{BatchIndex: 1, Start: []byte("b"), Limit: 2},
					{BatchIndex: 4, Start: litetable.LastRowName(), Reverse: true, Limit: 1},
				},
				readTs: 100,
				expected: map[int][][]byte{
					0: rows("a", "b"),
					1: rows("b", "c"),
					4: rows("z"),
				},
			},
			"nothing visible": {
				queries: []backend.SubQuery{{BatchIndex: 0, Start: litetable.FirstRowName(),
					Limit: 10}},
				readTs:   1,
				expected: map[int][][]byte{0: nil},
			},
		}

		for name, tc := range tests {
			t.Run(name, func(t *testing.T) {
				req := require.New(t)
				sess, err := s.Acquire(ctx)
				req.NoError(err)
				defer func() {
					req.NoError(s.Release(sess))
				}()

				got, err := sess.DispatchCandidateRows(ctx, Table, tc.queries, tc.readTs)
				req.NoError(err)
				for batch, want := range tc.expected {
					reverse := false
					for _, q := range tc.queries {
						if q.BatchIndex == batch {
							reverse = q.Reverse
						}
					}
					req.Equal(want, got.Rows(batch, reverse), "batch %d", batch)
				}
			})
		}
	})

	t.Run("fetch cells", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		Load(t, s)

		sess, err := s.Acquire(ctx)
		req.NoError(err)
		defer func() {
			req.NoError(s.Release(sess))
		}()

		raw, err := sess.FetchCells(ctx, Table, rows("c", "missing", "z"),
			litetable.AllColumns(), 100)
		req.NoError(err)

		got, err := extract.Values(raw, 100, litetable.AllColumns(), sess.Decoder(), nil)
		req.NoError(err)
		req.Len(got, 2)
		req.Equal([]byte("c"), got[0].Row)
		req.Equal([][]byte{[]byte("v"), []byte("w")}, got[0].ColumnNames())
		w, _ := got[0].Get([]byte("w"))
		req.Equal(litetable.Value{Contents: []byte("c5"), Timestamp: 5}, w)
		req.Equal([]byte("z"), got[1].Row)

		// the read timestamp hides newer versions whether or not the backend filters them
		got, err = extract.Values(raw, 5, litetable.AllColumns(), sess.Decoder(), nil)
		req.NoError(err)
		req.Len(got, 1)
		req.Equal([][]byte{[]byte("v")}, got[0].ColumnNames())
	})

	t.Run("pinned snapshot", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		Load(t, s)

		sess, err := s.Acquire(ctx)
		req.NoError(err)
		defer func() {
			req.NoError(s.Release(sess))
		}()

		previous, err := sess.SetAutoCommit(ctx, false)
		req.NoError(err)
		req.True(previous)

		req.NoError(s.Put(ctx, Table, []litetable.CellValue{cell("b0", "v", "new")}, 2))

		q := []backend.SubQuery{{Start: []byte("b"), End: []byte("c"), Limit: 10}}
		got, err := sess.DispatchCandidateRows(ctx, Table, q, 100)
		req.NoError(err)
		req.Equal(rows("b"), got.Rows(0, false), "pinned session must not see later writes")

		previous, err = sess.SetAutoCommit(ctx, true)
		req.NoError(err)
		req.False(previous)

		got, err = sess.DispatchCandidateRows(ctx, Table, q, 100)
		req.NoError(err)
		req.Equal(rows("b", "b0"), got.Rows(0, false))
	})

	t.Run("binary row keys", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		req.NoError(s.CreateTable(ctx, Table))

		keys := [][]byte{{0x00}, {0x00, 0x00}, {'a'}, {'a', 0x00}, {0xff}, litetable.LastRowName()}
		var cells []litetable.CellValue
		for _, k := range keys {
			cells = append(cells, litetable.CellValue{
				Cell:     litetable.Cell{Row: k, Column: []byte{0x00}},
				Contents: k,
			})
		}
		req.NoError(s.Put(ctx, Table, cells, 3))

		sess, err := s.Acquire(ctx)
		req.NoError(err)
		defer func() {
			req.NoError(s.Release(sess))
		}()

		got, err := sess.DispatchCandidateRows(ctx, Table, []backend.SubQuery{
			{BatchIndex: 0, Start: litetable.FirstRowName(), Limit: 100},
			{BatchIndex: 1, Start: []byte{'a', 0x00}, Reverse: true, Limit: 100},
		}, 4)
		req.NoError(err)
		req.Equal(keys, got.Rows(0, false))
		req.Equal([][]byte{{'a', 0x00}, {'a'}, {0x00, 0x00}, {0x00}}, got.Rows(1, true))

		raw, err := sess.FetchCells(ctx, Table, keys, litetable.AllColumns(), 4)
		req.NoError(err)
		values, err := extract.Values(raw, 4, litetable.AllColumns(), sess.Decoder(), nil)
		req.NoError(err)
		req.Len(values, len(keys))
		for i, v := range values {
			req.Equal(keys[i], v.Row)
			got, ok := v.Get([]byte{0x00})
			req.True(ok)
			req.Equal(keys[i], got.Contents)
		}
	})

	t.Run("delete versions", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		Load(t, s)

		req.NoError(s.Put(ctx, Table, []litetable.CellValue{cell("a", "v", "a2")}, 2))
		req.NoError(s.DeleteVersions(ctx, Table, []backend.Version{
			{Row: []byte("a"), Column: []byte("v"), Timestamp: 1},
		}))

		sess, err := s.Acquire(ctx)
		req.NoError(err)
		defer func() {
			req.NoError(s.Release(sess))
		}()

		raw, err := sess.FetchCells(ctx, Table, rows("a"), litetable.AllColumns(), 100)
		req.NoError(err)
		ts, err := extract.Timestamps(raw, 2, litetable.AllColumns(), sess.Decoder(), nil)
		req.NoError(err)
		req.Empty(ts, "version 1 was deleted and version 2 is not visible at 2")
	})

	t.Run("errors", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		Load(t, s)

		req.False(s.TableExists("nope"))
		req.True(s.TableExists(Table))
		req.True(errors.Is(s.Put(ctx, "nope", []litetable.CellValue{cell("a", "v", "x")}, 1),
			litetable.ErrTableNotFound))
		req.True(errors.Is(s.Put(ctx, Table, []litetable.CellValue{cell("a", "v", "x")}, 0),
			litetable.ErrInvalidTimestamp))
		req.True(errors.Is(s.CreateTable(ctx, "bad name"), litetable.ErrInvalidRequest))

		sess, err := s.Acquire(ctx)
		req.NoError(err)
		_, err = sess.DispatchCandidateRows(ctx, "nope",
			[]backend.SubQuery{{Start: []byte("a"), Limit: 1}}, 10)
		req.Error(err)
		req.NoError(s.Release(sess))
		req.Error(s.Release(sess), "a session can only be released once")
	})
}
