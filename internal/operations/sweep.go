package operations

import (
	"context"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/reaper"
	"github.com/rs/zerolog/log"
)

// Sweep queues the removal of every version of table shadowed by a newer version below
// before. It returns once the request is recorded; the sweep itself runs in the background.
func (m *Manager) Sweep(ctx context.Context, table string, before uint64) (err error) {
	start := m.now()
	defer func() {
		m.metrics.Observe(OpSweep, start, 0, err)
	}()

	if m.sweeper == nil {
		return litetable.Errorf(litetable.ErrInvalidRequest, "sweeping is disabled")
	}
	if err = m.checkTable(table); err != nil {
		return err
	}
	if before == 0 {
		return litetable.Errorf(litetable.ErrInvalidTimestamp, "sweep needs a timestamp above 0")
	}
	if err = m.sweeper.Reap(ctx, &reaper.ReapParams{Table: table, Before: before}); err != nil {
		return err
	}
	log.Info().Str("table", table).Uint64("before", before).Msg("sweep queued")
	return nil
}
