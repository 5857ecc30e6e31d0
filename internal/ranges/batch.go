package ranges

import (
	"context"
	"encoding/hex"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
)

// GetFirstBatchForRanges returns the first page of every request, index aligned with requests.
// Requests with the same key share one page. All candidate selection happens in a single
// dispatch and all cell data in a single fetch, against one pinned snapshot.
//
// A backend failure fails the whole call; no partial pages are returned.
func (s *Scanner) GetFirstBatchForRanges(
	ctx context.Context,
	table string,
	requests []litetable.RangeRequest,
	ts uint64,
	tc *trace.Context,
) ([]*litetable.Page[litetable.Value], error) {
	tc = trace.OrDisabled(tc)
	pages := make([]*litetable.Page[litetable.Value], len(requests))

	// index of the first request with each key
	first := make(map[string]int, len(requests))
	var queries []backend.SubQuery
	for i, req := range requests {
		if _, ok := first[req.Key()]; ok {
			continue
		}
		first[req.Key()] = i
		if req.IsEmptyRange() {
			pages[i] = litetable.EmptyPage[litetable.Value](req.EndExclusive())
			continue
		}
		queries = append(queries, backend.EffectiveSubQuery(i, req))
	}

	if len(queries) > 0 {
		err := s.withSession(ctx, tc, func(sess backend.Session) error {
			candidates, err := sess.DispatchCandidateRows(ctx, table, queries, ts)
			if err != nil {
				return litetable.WrapIO(err, "failed to dispatch %d candidate queries on %s",
					len(queries), table)
			}

			cells, err := fetchValues(ctx, sess, table, candidates.Union(), ts, tc)
			if err != nil {
				return err
			}

			for _, q := range queries {
				page, err := pageForQuery(requests[q.BatchIndex], q, candidates, cells, tc)
				if err != nil {
					return err
				}
				pages[q.BatchIndex] = page
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	for i, req := range requests {
		pages[i] = pages[first[req.Key()]]
	}
	return pages, nil
}

// fetchValues resolves every row in rows to its visible values, keyed by row.
func fetchValues(
	ctx context.Context,
	sess backend.Session,
	table string,
	rows [][]byte,
	ts uint64,
	tc *trace.Context,
) (map[string]litetable.RowResult[litetable.Value], error) {
	if len(rows) == 0 {
		return nil, nil
	}
	raw, err := sess.FetchCells(ctx, table, rows, litetable.AllColumns(), ts)
	if err != nil {
		return nil, litetable.WrapIO(err, "failed to fetch %d rows from %s", len(rows), table)
	}

	resolved, err := extract.Values(raw, ts, litetable.AllColumns(), sess.Decoder(), tc)
	if err != nil {
		return nil, err
	}
	byRow := make(map[string]litetable.RowResult[litetable.Value], len(resolved))
	for _, r := range resolved {
		byRow[string(r.Row)] = r
	}
	return byRow, nil
}

// pageForQuery picks out the rows selected for q, in scan order, and computes its token.
func pageForQuery(
	req litetable.RangeRequest,
	q backend.SubQuery,
	candidates *backend.CandidateRows,
	cells map[string]litetable.RowResult[litetable.Value],
	tc *trace.Context,
) (*litetable.Page[litetable.Value], error) {
	rows := candidates.Rows(q.BatchIndex, q.Reverse)
	if err := checkCandidates(req, q, rows, tc); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return litetable.EmptyPage[litetable.Value](q.End), nil
	}

	sel := req.ColumnSelection()
	page := &litetable.Page[litetable.Value]{}
	for _, row := range rows {
		r, ok := cells[string(row)]
		if !ok {
			continue
		}
		r = r.FilterColumns(sel)
		if r.IsEmpty() {
			continue
		}
		page.Rows = append(page.Rows, r)
	}

	// a short batch proves the store has nothing more in range
	if len(rows) < q.Limit {
		page.Token = litetable.EndToken(q.End)
		return page, nil
	}
	page.Token = litetable.TokenAfter(q.Reverse, rows[len(rows)-1], q.End)
	return page, nil
}

// checkCandidates verifies the backend honoured the sub-query. Anything else means the adapter
// is broken, so it is reported as a fault and never retried.
func checkCandidates(req litetable.RangeRequest, q backend.SubQuery, rows [][]byte,
	tc *trace.Context) error {
	if len(rows) > q.Limit {
		tc.Log().Error().
			Str("request", req.String()).
			Int("limit", q.Limit).
			Int("returned", len(rows)).
			Msg("backend returned more candidate rows than requested")
		return litetable.Errorf(litetable.ErrBoundsViolation,
			"batch %d returned %d rows for a limit of %d", q.BatchIndex, len(rows), q.Limit)
	}
	for _, row := range rows {
		if q.Contains(row) && req.InRange(row) {
			continue
		}
		tc.Log().Error().
			Str("request", req.String()).
			Str("start", hex.EncodeToString(q.Start)).
			Str("end", hex.EncodeToString(q.End)).
			Bool("reverse", q.Reverse).
			Str("row", hex.EncodeToString(row)).
			Msg("candidate row outside of its request bounds")
		return litetable.Errorf(litetable.ErrBoundsViolation,
			"row %x is outside batch %d [%x, %x) reverse=%t", row, q.BatchIndex, q.Start, q.End,
			q.Reverse)
	}
	return nil
}
