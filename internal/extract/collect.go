package extract

import (
	"bytes"
	"sort"

	"github.com/litetable/litetable-kvs/internal/litetable"
)

// cells accumulates one T per (row, column).
type cells[T any] map[string]map[string]T

func (c cells[T]) get(row, col []byte) (T, bool) {
	cols, ok := c[string(row)]
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := cols[string(col)]
	return v, ok
}

func (c cells[T]) put(row, col []byte, v T) {
	cols, ok := c[string(row)]
	if !ok {
		cols = make(map[string]T)
		c[string(row)] = cols
	}
	cols[string(col)] = v
}

// rows breaks the cells up by row, rows in scan order and columns ascending.
func (c cells[T]) rows(reverse bool) []litetable.RowResult[T] {
	if len(c) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	out := make([]litetable.RowResult[T], 0, len(keys))
	for _, k := range keys {
		cols := c[k]
		names := make([]string, 0, len(cols))
		for n := range cols {
			names = append(names, n)
		}
		sort.Strings(names)

		r := litetable.RowResult[T]{
			Row:     []byte(k),
			Columns: make([]litetable.Column[T], 0, len(names)),
		}
		for _, n := range names {
			r.Columns = append(r.Columns, litetable.Column[T]{Name: []byte(n), Value: cols[n]})
		}
		out = append(out, r)
	}
	return out
}

func visible(startTs uint64, sel litetable.ColumnSelection, col []byte, ts uint64) bool {
	return ts < startTs && sel.Contains(col)
}

// ValueCollector keeps, per cell, the visible version with the highest timestamp.
type ValueCollector struct {
	cells cells[litetable.Value]
}

func NewValueCollector() *ValueCollector {
	return &ValueCollector{cells: make(cells[litetable.Value])}
}

// Collect is a CollectFunc.
func (c *ValueCollector) Collect(startTs uint64, sel litetable.ColumnSelection, row, col, val []byte,
	ts uint64) {
	if !visible(startTs, sel, col, ts) {
		return
	}
	if cur, ok := c.cells.get(row, col); ok && cur.Timestamp >= ts {
		return
	}
	c.cells.put(row, col, litetable.Value{Contents: bytes.Clone(val), Timestamp: ts})
}

// Rows returns the collected rows in scan order.
func (c *ValueCollector) Rows(reverse bool) []litetable.RowResult[litetable.Value] {
	return c.cells.rows(reverse)
}

// TimestampCollector keeps, per cell, the timestamp of the latest visible version.
type TimestampCollector struct {
	cells cells[uint64]
}

func NewTimestampCollector() *TimestampCollector {
	return &TimestampCollector{cells: make(cells[uint64])}
}

// Collect is a CollectFunc.
func (c *TimestampCollector) Collect(startTs uint64, sel litetable.ColumnSelection, row, col, _ []byte,
	ts uint64) {
	if !visible(startTs, sel, col, ts) {
		return
	}
	if cur, ok := c.cells.get(row, col); ok && cur >= ts {
		return
	}
	c.cells.put(row, col, ts)
}

// Rows returns the collected rows in scan order.
func (c *TimestampCollector) Rows(reverse bool) []litetable.RowResult[uint64] {
	return c.cells.rows(reverse)
}

// AllTimestampsCollector keeps every visible timestamp of every cell.
type AllTimestampsCollector struct {
	cells cells[[]uint64]
}

func NewAllTimestampsCollector() *AllTimestampsCollector {
	return &AllTimestampsCollector{cells: make(cells[[]uint64])}
}

// Collect is a CollectFunc.
func (c *AllTimestampsCollector) Collect(startTs uint64, sel litetable.ColumnSelection, row, col, _ []byte,
	ts uint64) {
	if !visible(startTs, sel, col, ts) {
		return
	}
	cur, _ := c.cells.get(row, col)
	i := sort.Search(len(cur), func(i int) bool { return cur[i] >= ts })
	if i < len(cur) && cur[i] == ts {
		return
	}
	cur = append(cur, 0)
	copy(cur[i+1:], cur[i:])
	cur[i] = ts
	c.cells.put(row, col, cur)
}

// Rows returns the collected rows in scan order, each cell's timestamps ascending.
func (c *AllTimestampsCollector) Rows(reverse bool) []litetable.RowResult[[]uint64] {
	return c.cells.rows(reverse)
}
