package ranges

import (
	"context"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
)

// resolveFunc turns the raw rows of one scan into a page.
type resolveFunc[T any] func(raw []extract.RawRow, q backend.SubQuery,
	decode extract.DecodeFunc) (*litetable.Page[T], error)

// GetRangePage reads one page of a single range without batching. It follows the same token
// rules as GetFirstBatchForRanges, so a request gets the same page either way.
func (s *Scanner) GetRangePage(
	ctx context.Context,
	table string,
	req litetable.RangeRequest,
	ts uint64,
	tc *trace.Context,
) (*litetable.Page[litetable.Value], error) {
	tc = trace.OrDisabled(tc)
	return scanPage(ctx, s, table, req, ts, tc,
		func(raw []extract.RawRow, q backend.SubQuery,
			decode extract.DecodeFunc) (*litetable.Page[litetable.Value], error) {
			return extract.PageFromRangeResults(raw, ts, req.ColumnSelection(), q.End, q.Reverse,
				decode, tc)
		})
}

// GetVersions reads one page of a range listing every version visible at ts instead of only
// the newest. Paging works as for GetRangePage.
func (s *Scanner) GetVersions(
	ctx context.Context,
	table string,
	req litetable.RangeRequest,
	ts uint64,
	tc *trace.Context,
) (*litetable.Page[[]uint64], error) {
	tc = trace.OrDisabled(tc)
	return scanPage(ctx, s, table, req, ts, tc,
		func(raw []extract.RawRow, q backend.SubQuery,
			decode extract.DecodeFunc) (*litetable.Page[[]uint64], error) {
			return extract.VersionsPageFromRangeResults(raw, ts, req.ColumnSelection(), q.End,
				q.Reverse, decode, tc)
		})
}

func scanPage[T any](
	ctx context.Context,
	s *Scanner,
	table string,
	req litetable.RangeRequest,
	ts uint64,
	tc *trace.Context,
	resolve resolveFunc[T],
) (*litetable.Page[T], error) {
	if req.IsEmptyRange() {
		return litetable.EmptyPage[T](req.EndExclusive()), nil
	}

	q := backend.EffectiveSubQuery(0, req)
	var page *litetable.Page[T]
	err := s.withSession(ctx, tc, func(sess backend.Session) error {
		candidates, err := sess.DispatchCandidateRows(ctx, table, []backend.SubQuery{q}, ts)
		if err != nil {
			return litetable.WrapIO(err, "failed to dispatch candidate query on %s", table)
		}
		rows := candidates.Rows(q.BatchIndex, q.Reverse)
		if err := checkCandidates(req, q, rows, tc); err != nil {
			return err
		}
		if len(rows) == 0 {
			page = litetable.EmptyPage[T](q.End)
			return nil
		}

		raw, err := sess.FetchCells(ctx, table, rows, req.ColumnSelection(), ts)
		if err != nil {
			return litetable.WrapIO(err, "failed to fetch %d rows from %s", len(rows), table)
		}

		page, err = resolve(withEmptyRows(raw, rows), q, sess.Decoder())
		if err != nil {
			return err
		}
		if len(rows) < q.Limit {
			page.Token = litetable.EndToken(q.End)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// withEmptyRows adds an empty raw row for every candidate the fetch returned nothing for, so
// paging continues after every candidate even when its columns were filtered away.
func withEmptyRows(raw []extract.RawRow, candidates [][]byte) []extract.RawRow {
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		seen[string(r.Row)] = struct{}{}
	}
	for _, row := range candidates {
		if _, ok := seen[string(row)]; !ok {
			raw = append(raw, extract.RawRow{Row: row})
		}
	}
	return raw
}
