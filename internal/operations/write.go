package operations

import (
	"context"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/rs/zerolog/log"
)

// Put writes cells to table at ts and returns the timestamp used. A ts of 0 writes at the
// current time in microseconds.
func (m *Manager) Put(
	ctx context.Context,
	table string,
	cells []litetable.CellValue,
	ts uint64,
) (written uint64, err error) {
	start := m.now()
	defer func() {
		m.metrics.Observe(OpPut, start, 0, err)
	}()

	if err = m.checkTable(table); err != nil {
		return 0, err
	}
	if len(cells) == 0 {
		return 0, litetable.Errorf(litetable.ErrInvalidRequest, "put needs at least one cell")
	}
	if ts == 0 {
		ts = uint64(m.now().UnixMicro())
	}
	if err = m.store.Put(ctx, table, cells, ts); err != nil {
		return 0, err
	}
	log.Debug().Str("table", table).Int("cells", len(cells)).Uint64("ts", ts).
		Msg("cells written")
	return ts, nil
}

// CreateTable creates table if it does not exist yet.
func (m *Manager) CreateTable(ctx context.Context, table string) (err error) {
	start := m.now()
	defer func() {
		m.metrics.Observe(OpCreateTable, start, 0, err)
	}()

	if err = backend.ValidateTableName(table); err != nil {
		return err
	}
	if err = m.store.CreateTable(ctx, table); err != nil {
		return err
	}
	log.Info().Msgf("table %s ready", table)
	return nil
}
