package badgerstore

import (
	"bytes"
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
)

var errReleased = errors.New("badgerstore: session already released")

type session struct {
	store      *Store
	autoCommit bool
	// pinned is a read transaction held at pinnedSeq while auto-commit is off.
	pinned    *badger.Txn
	pinnedSeq uint64
	released  bool
}

func (s *session) SetAutoCommit(_ context.Context, on bool) (bool, error) {
	if s.released {
		return false, errReleased
	}
	previous := s.autoCommit
	switch {
	case !on && previous:
		s.pinned, s.pinnedSeq = s.store.pin()
	case on:
		s.unpin()
	}
	s.autoCommit = on
	return previous, nil
}

func (s *session) unpin() {
	if s.pinned != nil {
		s.store.unpin(s.pinned, s.pinnedSeq)
		s.pinned = nil
	}
}

// read runs fn in the pinned transaction, or in a fresh one when not pinned.
func (s *session) read(table string, fn func(txn *badger.Txn) error) error {
	if s.released {
		return errReleased
	}
	txn := s.pinned
	if txn == nil {
		var seq uint64
		txn, seq = s.store.pin()
		defer s.store.unpin(txn, seq)
	}
	ok, err := s.store.tableExistsAt(txn, table)
	if err != nil {
		return err
	}
	if !ok {
		return backend.ErrTableNotFound(table)
	}
	return fn(txn)
}

func (s *session) DispatchCandidateRows(
	ctx context.Context,
	table string,
	queries []backend.SubQuery,
	readTs uint64,
) (*backend.CandidateRows, error) {
	prefix := tablePrefix(table)
	candidates := backend.NewCandidateRows()
	err := s.read(table, func(txn *badger.Txn) error {
		for _, q := range queries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := selectCandidates(txn, prefix, q, readTs, candidates); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func withPrefix(prefix, rest []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(rest))
	key = append(key, prefix...)
	return append(key, rest...)
}

func selectCandidates(txn *badger.Txn, prefix []byte, q backend.SubQuery, readTs uint64,
	candidates *backend.CandidateRows) error {
	it := txn.NewIterator(badger.IteratorOptions{
		Reverse: q.Reverse,
		Prefix:  prefix,
	})
	defer it.Close()

	var seek, stop []byte
	if q.Reverse {
		// reverse iterators land on the largest key <= seek
		seek = withPrefix(prefix, litetable.RowKeyUpperBound(q.Start))
		if len(q.End) > 0 {
			stop = withPrefix(prefix, litetable.RowKeyUpperBound(q.End))
		}
	} else {
		seek = withPrefix(prefix, litetable.EncodeRowKey(q.Start))
		if len(q.End) > 0 {
			stop = withPrefix(prefix, litetable.EncodeRowKey(q.End))
		}
	}

	found := 0
	for it.Seek(seek); it.ValidForPrefix(prefix) && found < q.Limit; {
		key := it.Item().Key()
		if stop != nil {
			cmp := bytes.Compare(key, stop)
			if (!q.Reverse && cmp >= 0) || (q.Reverse && cmp < 0) {
				break
			}
		}
		row, name, err := litetable.DecodeRowKey(key[len(prefix):])
		if err != nil {
			return err
		}
		_, ts, err := litetable.DecodeColumnName(name)
		if err != nil {
			return err
		}
		if ts >= readTs {
			it.Next()
			continue
		}
		candidates.Add(q.BatchIndex, row)
		found++
		// skip the rest of the row
		if q.Reverse {
			it.Seek(withPrefix(prefix, litetable.EncodeRowKey(row)))
		} else {
			it.Seek(withPrefix(prefix, litetable.RowKeyUpperBound(row)))
		}
	}
	return nil
}

func (s *session) FetchCells(
	ctx context.Context,
	table string,
	rows [][]byte,
	_ litetable.ColumnSelection,
	_ uint64,
) ([]extract.RawRow, error) {
	prefix := tablePrefix(table)
	out := make([]extract.RawRow, 0, len(rows))
	err := s.read(table, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			rowKey := withPrefix(prefix, litetable.EncodeRowKey(row))
			raw := extract.RawRow{Row: row}
			for it.Seek(rowKey); it.ValidForPrefix(rowKey); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				raw.Columns = append(raw.Columns, extract.RawColumn{
					Name:  item.KeyCopy(nil)[len(rowKey):],
					Value: val,
				})
			}
			if len(raw.Columns) > 0 {
				out = append(out, raw)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *session) Decoder() extract.DecodeFunc {
	return extract.CompositeDecoder
}
