// Package extract resolves raw multi-version tuples to the value visible at a read timestamp.
//
// Every backend hands the extractor the same shape of input: rows of raw columns in whatever
// encoding the backend stores them. A backend only supplies the DecodeFunc for its encoding; the
// iteration, visibility rule and paging are shared.
package extract

import (
	"encoding/hex"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
)

// RawColumn is one stored version as the backend returned it.
type RawColumn struct {
	Name      []byte
	Timestamp uint64
	Value     []byte
}

// RawRow is a row key and the raw versions fetched for it. A row with no columns still takes
// part in paging.
type RawRow struct {
	Row     []byte
	Columns []RawColumn
}

// DecodeFunc turns a backend-native raw column into (column, timestamp, value).
type DecodeFunc func(raw RawColumn) (col []byte, ts uint64, val []byte, err error)

// CollectFunc receives every decoded tuple. Implementations apply the visibility rule and keep
// whatever they need.
type CollectFunc func(startTs uint64, sel litetable.ColumnSelection, row, col, val []byte, ts uint64)

// CompositeDecoder decodes raw columns whose name is a composite (column, timestamp) name as
// produced by litetable.EncodeColumnName. The raw Timestamp is ignored.
func CompositeDecoder(raw RawColumn) ([]byte, uint64, []byte, error) {
	col, ts, err := litetable.DecodeColumnName(raw.Name)
	if err != nil {
		return nil, 0, nil, err
	}
	return col, ts, raw.Value, nil
}

// PlainDecoder is for backends that store the column name and timestamp separately.
func PlainDecoder(raw RawColumn) ([]byte, uint64, []byte, error) {
	if len(raw.Name) == 0 {
		return nil, 0, nil, litetable.Errorf(litetable.ErrDecode, "raw column has an empty name")
	}
	return raw.Name, raw.Timestamp, raw.Value, nil
}

// ExtractResults feeds every tuple of rows to collect and returns the largest row key in rows,
// including rows none of whose tuples are visible. It returns nil for empty input.
//
// A tuple that fails to decode aborts the call.
func ExtractResults(
	rows []RawRow,
	startTs uint64,
	sel litetable.ColumnSelection,
	decode DecodeFunc,
	collect CollectFunc,
	tc *trace.Context,
) ([]byte, error) {
	return extract(rows, startTs, sel, decode, collect, false, tc)
}

// extract returns the row furthest in the scan direction: the largest for forward scans and
// the smallest for reverse ones.
func extract(
	rows []RawRow,
	startTs uint64,
	sel litetable.ColumnSelection,
	decode DecodeFunc,
	collect CollectFunc,
	reverse bool,
	tc *trace.Context,
) ([]byte, error) {
	var edge []byte
	for _, r := range rows {
		if reverse {
			edge = litetable.MinName(edge, r.Row)
		} else {
			edge = litetable.MaxName(edge, r.Row)
		}

		for _, raw := range r.Columns {
			col, ts, val, err := decode(raw)
			if err != nil {
				tc.Log().Error().Err(err).
					Str("row", hex.EncodeToString(r.Row)).
					Str("raw_column", hex.EncodeToString(raw.Name)).
					Msg("failed to decode raw column")
				return nil, err
			}
			if tc.Verbose() {
				tc.Log().Debug().
					Str("row", hex.EncodeToString(r.Row)).
					Str("column", hex.EncodeToString(col)).
					Uint64("ts", ts).
					Uint64("start_ts", startTs).
					Bool("visible", ts < startTs).
					Int("value_len", len(val)).
					Msg("extracting cell")
			}
			collect(startTs, sel, r.Row, col, val, ts)
		}
	}
	return edge, nil
}

// RowResultsPage wraps rows into a page whose token continues after lastRow.
func RowResultsPage[T any](
	endExclusive, lastRow []byte,
	rows []litetable.RowResult[T],
	reverse bool,
) *litetable.Page[T] {
	return &litetable.Page[T]{
		Rows:  rows,
		Token: litetable.TokenAfter(reverse, lastRow, endExclusive),
	}
}

// PageFromRangeResults resolves the raw rows of one range scan into a page of values.
func PageFromRangeResults(
	rows []RawRow,
	startTs uint64,
	sel litetable.ColumnSelection,
	endExclusive []byte,
	reverse bool,
	decode DecodeFunc,
	tc *trace.Context,
) (*litetable.Page[litetable.Value], error) {
	c := NewValueCollector()
	lastRow, err := extract(rows, startTs, sel, decode, c.Collect, reverse, tc)
	if err != nil {
		return nil, err
	}
	return RowResultsPage(endExclusive, lastRow, c.Rows(reverse), reverse), nil
}

// VersionsPageFromRangeResults resolves the raw rows of one range scan into a page listing every
// visible timestamp of each cell.
func VersionsPageFromRangeResults(
	rows []RawRow,
	startTs uint64,
	sel litetable.ColumnSelection,
	endExclusive []byte,
	reverse bool,
	decode DecodeFunc,
	tc *trace.Context,
) (*litetable.Page[[]uint64], error) {
	c := NewAllTimestampsCollector()
	lastRow, err := extract(rows, startTs, sel, decode, c.Collect, reverse, tc)
	if err != nil {
		return nil, err
	}
	return RowResultsPage(endExclusive, lastRow, c.Rows(reverse), reverse), nil
}

// Values resolves rows to their visible values, in ascending row order.
func Values(
	rows []RawRow,
	startTs uint64,
	sel litetable.ColumnSelection,
	decode DecodeFunc,
	tc *trace.Context,
) ([]litetable.RowResult[litetable.Value], error) {
	c := NewValueCollector()
	if _, err := ExtractResults(rows, startTs, sel, decode, c.Collect, tc); err != nil {
		return nil, err
	}
	return c.Rows(false), nil
}

// Timestamps resolves rows to the timestamp of their visible versions, in ascending row order.
func Timestamps(
	rows []RawRow,
	startTs uint64,
	sel litetable.ColumnSelection,
	decode DecodeFunc,
	tc *trace.Context,
) ([]litetable.RowResult[uint64], error) {
	c := NewTimestampCollector()
	if _, err := ExtractResults(rows, startTs, sel, decode, c.Collect, tc); err != nil {
		return nil, err
	}
	return c.Rows(false), nil
}
