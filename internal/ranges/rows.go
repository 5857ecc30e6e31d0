package ranges

import (
	"context"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
)

// GetRows resolves the values of the named rows visible at ts, ascending by row. Rows with
// nothing visible are left out.
func (s *Scanner) GetRows(
	ctx context.Context,
	table string,
	rows [][]byte,
	sel litetable.ColumnSelection,
	ts uint64,
	tc *trace.Context,
) ([]litetable.RowResult[litetable.Value], error) {
	return lookupRows(ctx, s, table, rows, sel, ts, trace.OrDisabled(tc), extract.Values)
}

// GetLatestTimestamps resolves, per cell of the named rows, the timestamp of the version
// visible at ts.
func (s *Scanner) GetLatestTimestamps(
	ctx context.Context,
	table string,
	rows [][]byte,
	sel litetable.ColumnSelection,
	ts uint64,
	tc *trace.Context,
) ([]litetable.RowResult[uint64], error) {
	return lookupRows(ctx, s, table, rows, sel, ts, trace.OrDisabled(tc), extract.Timestamps)
}

type lookupFunc[T any] func(rows []extract.RawRow, startTs uint64, sel litetable.ColumnSelection,
	decode extract.DecodeFunc, tc *trace.Context) ([]litetable.RowResult[T], error)

func lookupRows[T any](
	ctx context.Context,
	s *Scanner,
	table string,
	rows [][]byte,
	sel litetable.ColumnSelection,
	ts uint64,
	tc *trace.Context,
	resolve lookupFunc[T],
) ([]litetable.RowResult[T], error) {
	distinct := make([][]byte, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if err := litetable.ValidateName(r); err != nil {
			return nil, err
		}
		if _, ok := seen[string(r)]; ok {
			continue
		}
		seen[string(r)] = struct{}{}
		distinct = append(distinct, r)
	}
	if len(distinct) == 0 {
		return nil, nil
	}

	var out []litetable.RowResult[T]
	err := s.withSession(ctx, tc, func(sess backend.Session) error {
		raw, err := sess.FetchCells(ctx, table, distinct, sel, ts)
		if err != nil {
			return litetable.WrapIO(err, "failed to fetch %d rows from %s", len(distinct), table)
		}
		out, err = resolve(raw, ts, sel, sess.Decoder(), tc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
