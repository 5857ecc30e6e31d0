package operations

import (
	"context"
	"iter"
	"sync"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Operation names used for metrics and logs.
const (
	OpFirstBatch       = "get_first_batch_for_ranges"
	OpRangePage        = "get_range_page"
	OpRows             = "get_rows"
	OpLatestTimestamps = "get_latest_timestamps"
	OpPut              = "put"
	OpCreateTable      = "create_table"
	OpSweep            = "sweep"
)

// GetFirstBatchForRanges returns the first page of every request against table, index aligned
// with requests.
func (m *Manager) GetFirstBatchForRanges(
	ctx context.Context,
	table string,
	requests []litetable.RangeRequest,
	ts uint64,
) (pages []*litetable.Page[litetable.Value], err error) {
	start := m.now()
	defer func() {
		m.metrics.Observe(OpFirstBatch, start, countRows(pages...), err)
	}()

	if err = m.checkTable(table); err != nil {
		return nil, err
	}
	withHints := make([]litetable.RangeRequest, len(requests))
	for i, req := range requests {
		withHints[i] = m.withDefaults(req)
	}

	tc := m.trace()
	tc.Log().Debug().Str("table", table).Int("requests", len(requests)).
		Msg("reading first batch")
	return m.scanner.GetFirstBatchForRanges(ctx, table, withHints, readTimestamp(ts), tc)
}

// GetFirstBatchForTables reads the first batch of every table's requests, each table on its
// own session. The first failure cancels the rest.
func (m *Manager) GetFirstBatchForTables(
	ctx context.Context,
	requests map[string][]litetable.RangeRequest,
	ts uint64,
) (map[string][]*litetable.Page[litetable.Value], error) {
	var (
		mu  sync.Mutex
		out = make(map[string][]*litetable.Page[litetable.Value], len(requests))
		sem = semaphore.NewWeighted(int64(m.maxParallelTables))
	)
	g, gctx := errgroup.WithContext(ctx)
	for table, reqs := range requests {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			pages, err := m.GetFirstBatchForRanges(gctx, table, reqs, ts)
			if err != nil {
				return err
			}
			mu.Lock()
			out[table] = pages
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRangePage reads one page of req.
func (m *Manager) GetRangePage(
	ctx context.Context,
	table string,
	req litetable.RangeRequest,
	ts uint64,
) (page *litetable.Page[litetable.Value], err error) {
	start := m.now()
	defer func() {
		m.metrics.Observe(OpRangePage, start, countRows(page), err)
	}()

	if err = m.checkTable(table); err != nil {
		return nil, err
	}
	return m.scanner.GetRangePage(ctx, table, m.withDefaults(req), readTimestamp(ts), m.trace())
}

// GetRange iterates over every row of req, page by page, every page read at the same
// timestamp. A ts of 0 reads as of the call: versions written later with a clock timestamp
// are not seen. Iteration stops at the first error, which is yielded with a zero row.
func (m *Manager) GetRange(
	ctx context.Context,
	table string,
	req litetable.RangeRequest,
	ts uint64,
) iter.Seq2[litetable.RowResult[litetable.Value], error] {
	if ts == 0 {
		ts = m.snapshotTimestamp()
	}
	return func(yield func(litetable.RowResult[litetable.Value], error) bool) {
		for {
			page, err := m.GetRangePage(ctx, table, req, ts)
			if err != nil {
				yield(litetable.RowResult[litetable.Value]{}, err)
				return
			}
			for _, r := range page.Rows {
				if !yield(r, nil) {
					return
				}
			}
			if !page.Token.HasMore {
				return
			}
			req = req.WithStart(page.Token.NextStart)
		}
	}
}

// GetRows reads the named rows.
func (m *Manager) GetRows(
	ctx context.Context,
	table string,
	rows [][]byte,
	sel litetable.ColumnSelection,
	ts uint64,
) (out []litetable.RowResult[litetable.Value], err error) {
	start := m.now()
	defer func() {
		m.metrics.Observe(OpRows, start, len(out), err)
	}()

	if err = m.checkTable(table); err != nil {
		return nil, err
	}
	return m.scanner.GetRows(ctx, table, rows, sel, readTimestamp(ts), m.trace())
}

// GetLatestTimestamps reads, per cell of the named rows, the timestamp of its visible version.
func (m *Manager) GetLatestTimestamps(
	ctx context.Context,
	table string,
	rows [][]byte,
	sel litetable.ColumnSelection,
	ts uint64,
) (out []litetable.RowResult[uint64], err error) {
	start := m.now()
	defer func() {
		m.metrics.Observe(OpLatestTimestamps, start, len(out), err)
	}()

	if err = m.checkTable(table); err != nil {
		return nil, err
	}
	return m.scanner.GetLatestTimestamps(ctx, table, rows, sel, readTimestamp(ts), m.trace())
}

func countRows(pages ...*litetable.Page[litetable.Value]) int {
	seen := make(map[*litetable.Page[litetable.Value]]struct{}, len(pages))
	n := 0
	for _, p := range pages {
		if p == nil {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		n += len(p.Rows)
	}
	return n
}
