package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/rs/zerolog/log"
)

// fetchChunk bounds the rows named in one IN list.
const fetchChunk = 256

var errReleased = errors.New("sqlstore: session already released")

// queryer is satisfied by *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type session struct {
	store      *Store
	conn       *sql.Conn
	autoCommit bool
	// pinned is a read-only transaction held while auto-commit is off.
	pinned   *sql.Tx
	released bool
}

func (s *session) SetAutoCommit(ctx context.Context, on bool) (bool, error) {
	if s.released {
		return false, errReleased
	}
	previous := s.autoCommit
	switch {
	case !on && previous:
		tx, err := s.conn.BeginTx(ctx, &sql.TxOptions{
			Isolation: s.store.isolation,
			ReadOnly:  true,
		})
		if err != nil {
			return previous, err
		}
		s.pinned = tx
	case on:
		s.unpin()
	}
	s.autoCommit = on
	return previous, nil
}

func (s *session) unpin() {
	if s.pinned == nil {
		return
	}
	if err := s.pinned.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warn().Err(err).Msg("failed to end pinned read transaction")
	}
	s.pinned = nil
}

func (s *session) query(ctx context.Context, table, query string, args []any) (*sql.Rows, error) {
	if s.released {
		return nil, errReleased
	}
	if !s.store.TableExists(table) {
		return nil, backend.ErrTableNotFound(table)
	}
	if err := s.store.guard.check(query); err != nil {
		return nil, err
	}
	var q queryer = s.conn
	if s.pinned != nil {
		q = s.pinned
	}
	return q.QueryContext(ctx, query, args...)
}

func (s *session) DispatchCandidateRows(
	ctx context.Context,
	table string,
	queries []backend.SubQuery,
	readTs uint64,
) (*backend.CandidateRows, error) {
	candidates := backend.NewCandidateRows()
	if len(queries) == 0 {
		return candidates, nil
	}
	query, args := candidateStatement(table, queries, readTs)
	rows, err := s.query(ctx, table, query, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row   []byte
			batch int
		)
		if err := rows.Scan(&row, &batch); err != nil {
			return nil, err
		}
		candidates.Add(batch, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (s *session) FetchCells(
	ctx context.Context,
	table string,
	rows [][]byte,
	sel litetable.ColumnSelection,
	readTs uint64,
) ([]extract.RawRow, error) {
	byRow := make(map[string]*extract.RawRow, len(rows))
	for start := 0; start < len(rows); start += fetchChunk {
		chunk := rows[start:min(start+fetchChunk, len(rows))]
		if err := s.fetchChunk(ctx, table, chunk, sel, readTs, byRow); err != nil {
			return nil, err
		}
	}

	out := make([]extract.RawRow, 0, len(byRow))
	for _, r := range rows {
		if raw, ok := byRow[string(r)]; ok {
			out = append(out, *raw)
			delete(byRow, string(r))
		}
	}
	return out, nil
}

func (s *session) fetchChunk(
	ctx context.Context,
	table string,
	chunk [][]byte,
	sel litetable.ColumnSelection,
	readTs uint64,
	byRow map[string]*extract.RawRow,
) error {
	query, args := fetchStatement(table, chunk, sel, readTs)
	rows, err := s.query(ctx, table, query, args)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row, name, val []byte
			ts             int64
		)
		if err := rows.Scan(&row, &name, &ts, &val); err != nil {
			return err
		}
		raw, ok := byRow[string(row)]
		if !ok {
			raw = &extract.RawRow{Row: row}
			byRow[string(row)] = raw
		}
		raw.Columns = append(raw.Columns, extract.RawColumn{
			Name:      name,
			Timestamp: uint64(ts),
			Value:     val,
		})
	}
	return rows.Err()
}

func (s *session) Decoder() extract.DecodeFunc {
	return extract.PlainDecoder
}
