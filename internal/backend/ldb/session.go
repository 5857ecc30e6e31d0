package ldb

import (
	"context"
	"errors"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var errReleased = errors.New("ldb: session already released")

// reader is satisfied by both *leveldb.DB and *leveldb.Snapshot.
type reader interface {
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type session struct {
	store      *Store
	autoCommit bool
	snapshot   *leveldb.Snapshot
	released   bool
}

func (s *session) SetAutoCommit(_ context.Context, on bool) (bool, error) {
	if s.released {
		return false, errReleased
	}
	previous := s.autoCommit
	switch {
	case !on && previous:
		snap, err := s.store.db.GetSnapshot()
		if err != nil {
			return previous, err
		}
		s.snapshot = snap
	case on:
		s.unpin()
	}
	s.autoCommit = on
	return previous, nil
}

func (s *session) unpin() {
	if s.snapshot != nil {
		s.snapshot.Release()
		s.snapshot = nil
	}
}

func (s *session) reader(table string) (reader, error) {
	if s.released {
		return nil, errReleased
	}
	if !s.store.TableExists(table) {
		return nil, backend.ErrTableNotFound(table)
	}
	if s.snapshot != nil {
		return s.snapshot, nil
	}
	return s.store.db, nil
}

func (s *session) DispatchCandidateRows(
	ctx context.Context,
	table string,
	queries []backend.SubQuery,
	readTs uint64,
) (*backend.CandidateRows, error) {
	r, err := s.reader(table)
	if err != nil {
		return nil, err
	}
	prefix := tablePrefix(table)
	candidates := backend.NewCandidateRows()
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q.Reverse {
			err = selectReverse(r, prefix, q, readTs, candidates)
		} else {
			err = selectForward(r, prefix, q, readTs, candidates)
		}
		if err != nil {
			return nil, err
		}
	}
	return candidates, nil
}

// decodeKey splits a data key into its row and composite column name.
func decodeKey(prefix, key []byte) ([]byte, []byte, uint64, error) {
	row, name, err := litetable.DecodeRowKey(key[len(prefix):])
	if err != nil {
		return nil, nil, 0, err
	}
	_, ts, err := litetable.DecodeColumnName(name)
	if err != nil {
		return nil, nil, 0, err
	}
	return row, name, ts, nil
}

func selectForward(r reader, prefix []byte, q backend.SubQuery, readTs uint64,
	candidates *backend.CandidateRows) error {
	rng := &util.Range{Start: withPrefix(prefix, litetable.EncodeRowKey(q.Start))}
	if len(q.End) > 0 {
		rng.Limit = withPrefix(prefix, litetable.EncodeRowKey(q.End))
	} else {
		rng.Limit = util.BytesPrefix(prefix).Limit
	}

	it := r.NewIterator(rng, nil)
	defer it.Release()

	found := 0
	for ok := it.First(); ok && found < q.Limit; {
		row, _, ts, err := decodeKey(prefix, it.Key())
		if err != nil {
			return err
		}
		if ts >= readTs {
			ok = it.Next()
			continue
		}
		candidates.Add(q.BatchIndex, row)
		found++
		// jump over the rest of the row
		ok = it.Seek(withPrefix(prefix, litetable.RowKeyUpperBound(row)))
	}
	return it.Error()
}

func selectReverse(r reader, prefix []byte, q backend.SubQuery, readTs uint64,
	candidates *backend.CandidateRows) error {
	rng := &util.Range{Limit: withPrefix(prefix, litetable.RowKeyUpperBound(q.Start))}
	if len(q.End) > 0 {
		rng.Start = withPrefix(prefix, litetable.RowKeyUpperBound(q.End))
	} else {
		rng.Start = prefix
	}

	it := r.NewIterator(rng, nil)
	defer it.Release()

	found := 0
	for ok := it.Last(); ok && found < q.Limit; {
		row, _, ts, err := decodeKey(prefix, it.Key())
		if err != nil {
			return err
		}
		if ts >= readTs {
			ok = it.Prev()
			continue
		}
		candidates.Add(q.BatchIndex, row)
		found++
		// back up to the first key of the row, then step past it
		if it.Seek(withPrefix(prefix, litetable.EncodeRowKey(row))) {
			ok = it.Prev()
		} else {
			ok = false
		}
	}
	return it.Error()
}

func (s *session) FetchCells(
	ctx context.Context,
	table string,
	rows [][]byte,
	_ litetable.ColumnSelection,
	_ uint64,
) ([]extract.RawRow, error) {
	r, err := s.reader(table)
	if err != nil {
		return nil, err
	}
	prefix := tablePrefix(table)
	it := r.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	out := make([]extract.RawRow, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rowKey := withPrefix(prefix, litetable.EncodeRowKey(row))
		raw := extract.RawRow{Row: row}
		for ok := it.Seek(rowKey); ok; ok = it.Next() {
			key := it.Key()
			if len(key) < len(rowKey) || string(key[:len(rowKey)]) != string(rowKey) {
				break
			}
			raw.Columns = append(raw.Columns, extract.RawColumn{
				Name:  append([]byte(nil), key[len(rowKey):]...),
				Value: append([]byte(nil), it.Value()...),
			})
		}
		if err := it.Error(); err != nil {
			return nil, err
		}
		if len(raw.Columns) > 0 {
			out = append(out, raw)
		}
	}
	return out, nil
}

func (s *session) Decoder() extract.DecodeFunc {
	return extract.CompositeDecoder
}
