package memstore

import (
	"context"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
)

type session struct {
	store      *Store
	autoCommit bool
	// pinned holds the tables as of the moment auto-commit was turned off.
	pinned   map[string]*table
	released bool
}

func (s *session) SetAutoCommit(_ context.Context, on bool) (bool, error) {
	if s.released {
		return false, errReleased
	}
	previous := s.autoCommit
	switch {
	case !on && previous:
		s.pinned = s.store.snapshot()
	case on:
		s.pinned = nil
	}
	s.autoCommit = on
	return previous, nil
}

func (s *session) view(name string) (*table, error) {
	if s.released {
		return nil, errReleased
	}
	if s.pinned != nil {
		t, ok := s.pinned[name]
		if !ok {
			return nil, backend.ErrTableNotFound(name)
		}
		return t, nil
	}
	t, ok := s.store.snapshotTable(name)
	if !ok {
		return nil, backend.ErrTableNotFound(name)
	}
	return t, nil
}

func (s *session) DispatchCandidateRows(
	ctx context.Context,
	name string,
	queries []backend.SubQuery,
	readTs uint64,
) (*backend.CandidateRows, error) {
	t, err := s.view(name)
	if err != nil {
		return nil, err
	}

	candidates := backend.NewCandidateRows()
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := selectCandidates(t, q, readTs, candidates); err != nil {
			return nil, err
		}
	}
	return candidates, nil
}

// selectCandidates walks t from q.Start in q's direction, adding up to q.Limit rows that have a
// version below readTs.
func selectCandidates(t *table, q backend.SubQuery, readTs uint64,
	candidates *backend.CandidateRows) error {
	var (
		found   int
		lastRow []byte
		walkErr error
	)
	visit := func(e entry) bool {
		if !q.Contains(e.row) {
			// walked past the end bound
			return false
		}
		if lastRow != nil && litetable.Compare(lastRow, e.row) == 0 {
			return true
		}
		_, ts, err := litetable.DecodeColumnName(e.name)
		if err != nil {
			walkErr = err
			return false
		}
		if ts >= readTs {
			return true
		}
		lastRow = e.row
		candidates.Add(q.BatchIndex, e.row)
		found++
		return found < q.Limit
	}

	if !q.Reverse {
		t.AscendGreaterOrEqual(entry{row: q.Start}, visit)
		return walkErr
	}

	// every entry of q.Start sorts before the first entry of its successor
	next := litetable.NextLexicographicName(q.Start)
	if next == nil {
		t.Descend(visit)
		return walkErr
	}
	pivot := entry{row: next}
	t.DescendLessOrEqual(pivot, func(e entry) bool {
		if litetable.Compare(e.row, next) == 0 {
			return true
		}
		return visit(e)
	})
	return walkErr
}

func (s *session) FetchCells(
	ctx context.Context,
	name string,
	rows [][]byte,
	_ litetable.ColumnSelection,
	_ uint64,
) ([]extract.RawRow, error) {
	t, err := s.view(name)
	if err != nil {
		return nil, err
	}

	out := make([]extract.RawRow, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := extract.RawRow{Row: row}
		t.AscendGreaterOrEqual(entry{row: row}, func(e entry) bool {
			if litetable.Compare(e.row, row) != 0 {
				return false
			}
			raw.Columns = append(raw.Columns, extract.RawColumn{Name: e.name, Value: e.value})
			return true
		})
		if len(raw.Columns) > 0 {
			out = append(out, raw)
		}
	}
	return out, nil
}

func (s *session) Decoder() extract.DecodeFunc {
	return extract.CompositeDecoder
}
