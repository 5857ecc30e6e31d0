package reaper

import (
	"context"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
)

// Sweep removes, for every cell of table, all versions below before except the newest one and
// returns how many it removed. Reads at or after before see the same data afterwards.
func (r *Reaper) Sweep(ctx context.Context, table string, before uint64) (int, error) {
	if before <= 1 {
		return 0, nil
	}
	tc := trace.New(false)
	req := litetable.MustRangeRequest(litetable.WithBatchHint(r.batchSize))
	removed := 0
	for {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		page, err := r.scanner.GetVersions(ctx, table, req, before, tc)
		if err != nil {
			return removed, err
		}

		shadowed := shadowedVersions(page.Rows)
		if len(shadowed) > 0 {
			if err := r.store.DeleteVersions(ctx, table, shadowed); err != nil {
				return removed, litetable.WrapIO(err, "failed to delete %d versions from %s",
					len(shadowed), table)
			}
			removed += len(shadowed)
			r.metrics.Swept(len(shadowed))
		}

		if !page.Token.HasMore {
			break
		}
		req = req.WithStart(page.Token.NextStart)
	}
	tc.Log().Debug().Str("table", table).Uint64("before", before).Int("removed", removed).
		Msg("table swept")
	return removed, nil
}

// shadowedVersions lists every version but the newest of each cell. Timestamps are ascending.
func shadowedVersions(rows []litetable.RowResult[[]uint64]) []backend.Version {
	var out []backend.Version
	for _, row := range rows {
		for _, col := range row.Columns {
			for _, ts := range col.Value[:max(len(col.Value)-1, 0)] {
				out = append(out, backend.Version{
					Row:       row.Row,
					Column:    col.Name,
					Timestamp: ts,
				})
			}
		}
	}
	return out
}
