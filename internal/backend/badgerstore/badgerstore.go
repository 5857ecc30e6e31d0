// Package badgerstore stores tables in badger running in managed mode. Keys have the same
// layout as the leveldb backend; badger's own versions are a store-wide commit sequence, so a
// pinned session is a read transaction at the sequence current when it pinned.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Path of the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	Tables     []string
}

func (c *Config) validate() error {
	var errs []error
	if c.Path == "" && !c.InMemory {
		errs = append(errs, errors.New("path is required unless in memory"))
	}
	for _, t := range c.Tables {
		if err := backend.ValidateTableName(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Store struct {
	db *badger.DB

	// writeMu serializes commits so sequence numbers become visible in order.
	writeMu sync.Mutex
	seqMu   sync.RWMutex
	seq     uint64
	// pins counts open read transactions per sequence. Guarded by seqMu.
	pins    map[uint64]int
	discard uint64

	initial []string
}

func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithDetectConflicts(false).
		WithLogger(badgerLogger{l: log.With().Str("component", "badger").Logger()})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.OpenManaged(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{
		db:      db,
		seq:     db.MaxVersion(),
		pins:    map[uint64]int{},
		initial: cfg.Tables,
	}, nil
}

func (s *Store) Start() error {
	for _, t := range s.initial {
		if err := s.CreateTable(context.Background(), t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Stop() error {
	return s.db.Close()
}

func (s *Store) Name() string {
	return "Badger Store"
}

// current is the newest committed sequence.
func (s *Store) current() uint64 {
	s.seqMu.RLock()
	defer s.seqMu.RUnlock()
	return s.seq
}

// commit runs fn in a write transaction committed at the next sequence.
func (s *Store) commit(fn func(txn *badger.Txn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	txn := s.db.NewTransactionAt(math.MaxUint64, true)
	defer txn.Discard()
	if err := fn(txn); err != nil {
		return err
	}

	next := s.current() + 1
	if err := txn.CommitAt(next, nil); err != nil {
		return err
	}
	s.seqMu.Lock()
	s.seq = next
	s.advanceDiscard()
	s.seqMu.Unlock()
	return nil
}

// pin opens a read transaction at the newest sequence and holds that sequence back from
// compaction until unpin.
func (s *Store) pin() (*badger.Txn, uint64) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := s.seq
	s.pins[seq]++
	return s.db.NewTransactionAt(seq, false), seq
}

func (s *Store) unpin(txn *badger.Txn, seq uint64) {
	txn.Discard()
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	if s.pins[seq]--; s.pins[seq] <= 0 {
		delete(s.pins, seq)
	}
	s.advanceDiscard()
}

// advanceDiscard moves badger's discard timestamp up to the oldest pinned sequence, or the
// newest committed one when nothing is pinned. Callers hold seqMu.
func (s *Store) advanceDiscard() {
	ts := s.seq
	for seq := range s.pins {
		if seq < ts {
			ts = seq
		}
	}
	if ts > s.discard {
		s.discard = ts
		s.db.SetDiscardTs(ts)
	}
}

// discardTs is the timestamp below which badger may drop shadowed versions.
func (s *Store) discardTs() uint64 {
	s.seqMu.RLock()
	defer s.seqMu.RUnlock()
	return s.discard
}

func metaKey(table string) []byte {
	return []byte("m/" + table)
}

func tablePrefix(table string) []byte {
	return []byte("d/" + table + "/")
}

func dataKey(prefix, row, name []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(row)+len(name)+4)
	key = append(key, prefix...)
	key = litetable.AppendRowKey(key, row)
	return append(key, name...)
}

func (s *Store) tableExistsAt(txn *badger.Txn, table string) (bool, error) {
	_, err := txn.Get(metaKey(table))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) TableExists(table string) bool {
	txn := s.db.NewTransactionAt(s.current(), false)
	defer txn.Discard()
	ok, err := s.tableExistsAt(txn, table)
	if err != nil {
		log.Error().Err(err).Msgf("failed to look up table %s", table)
		return false
	}
	return ok
}

func (s *Store) CreateTable(_ context.Context, table string) error {
	if err := backend.ValidateTableName(table); err != nil {
		return err
	}
	if s.TableExists(table) {
		return nil
	}
	err := s.commit(func(txn *badger.Txn) error {
		return txn.Set(metaKey(table), []byte{1})
	})
	if err != nil {
		return litetable.WrapIO(err, "failed to create table %s", table)
	}
	return nil
}

func (s *Store) Put(_ context.Context, table string, cells []litetable.CellValue, ts uint64) error {
	if err := backend.ValidatePut(cells, ts); err != nil {
		return err
	}
	if !s.TableExists(table) {
		return backend.ErrTableNotFound(table)
	}
	prefix := tablePrefix(table)
	err := s.commit(func(txn *badger.Txn) error {
		for _, c := range cells {
			key := dataKey(prefix, c.Row, litetable.EncodeColumnName(c.Column, ts))
			if err := txn.Set(key, append([]byte(nil), c.Contents...)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return litetable.WrapIO(err, "failed to write %d cells to %s", len(cells), table)
	}
	return nil
}

func (s *Store) DeleteVersions(_ context.Context, table string, versions []backend.Version) error {
	if !s.TableExists(table) {
		return backend.ErrTableNotFound(table)
	}
	prefix := tablePrefix(table)
	err := s.commit(func(txn *badger.Txn) error {
		for _, v := range versions {
			if err := txn.Delete(dataKey(prefix, v.Row,
				litetable.EncodeColumnName(v.Column, v.Timestamp))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return litetable.WrapIO(err, "failed to delete %d versions from %s", len(versions), table)
	}
	return nil
}

func (s *Store) Acquire(_ context.Context) (backend.Session, error) {
	return &session{store: s, autoCommit: true}, nil
}

func (s *Store) Release(sess backend.Session) error {
	bs, ok := sess.(*session)
	if !ok || bs.store != s {
		return errors.New("session does not belong to this store")
	}
	if bs.released {
		return errors.New("session already released")
	}
	bs.released = true
	bs.unpin()
	return nil
}

// badgerLogger sends badger's logs through zerolog.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error().Msgf(format, args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn().Msgf(format, args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug().Msgf(format, args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Trace().Msgf(format, args...)
}
