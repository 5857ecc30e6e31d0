// Package memstore is an in-memory backend. Tables are ordered btrees of (row, composite column
// name) entries; a pinned session reads a lazily cloned copy of the tables.
package memstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/wal"
	"github.com/rs/zerolog/log"
)

const degree = 32

type entry struct {
	row   []byte
	name  []byte // litetable.EncodeColumnName(column, ts)
	value []byte
}

func lessEntry(a, b entry) bool {
	if c := bytes.Compare(a.row, b.row); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.name, b.name) < 0
}

type table = btree.BTreeG[entry]

// walLog is the subset of *wal.Manager the store writes through.
type walLog interface {
	Apply(e *wal.Entry) error
	Replay(fn func(e *wal.Entry) error) error
	Close() error
}

type Config struct {
	// WAL is optional. Without it the store forgets everything on restart.
	WAL *wal.Manager
	// Tables are created on Start if missing.
	Tables []string
}

func (c *Config) validate() error {
	var errs []error
	for _, t := range c.Tables {
		if err := backend.ValidateTableName(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Store struct {
	mutex   sync.RWMutex
	tables  map[string]*table
	wal     walLog
	initial []string
}

func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Store{
		tables:  make(map[string]*table),
		initial: cfg.Tables,
	}
	if cfg.WAL != nil {
		s.wal = cfg.WAL
	}
	return s, nil
}

// Start replays the WAL and creates the configured tables.
func (s *Store) Start() error {
	if s.wal != nil {
		replayed := 0
		err := s.wal.Replay(func(e *wal.Entry) error {
			replayed++
			return s.apply(e)
		})
		if err != nil {
			return fmt.Errorf("failed to replay WAL: %w", err)
		}
		log.Info().Msgf("memory store replayed %d WAL entries", replayed)
	}
	for _, t := range s.initial {
		if err := s.CreateTable(context.Background(), t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Stop() error {
	if s.wal != nil {
		return s.wal.Close()
	}
	return nil
}

func (s *Store) Name() string {
	return "Memory Store"
}

func (s *Store) TableExists(name string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.tables[name]
	return ok
}

func (s *Store) CreateTable(_ context.Context, name string) error {
	if err := backend.ValidateTableName(name); err != nil {
		return err
	}
	if s.TableExists(name) {
		return nil
	}
	return s.log(&wal.Entry{Op: wal.OpCreateTable, Table: name})
}

func (s *Store) Put(_ context.Context, name string, cells []litetable.CellValue, ts uint64) error {
	if err := backend.ValidatePut(cells, ts); err != nil {
		return err
	}
	if !s.TableExists(name) {
		return backend.ErrTableNotFound(name)
	}
	return s.log(&wal.Entry{Op: wal.OpPut, Table: name, Cells: cells, Timestamp: ts})
}

func (s *Store) DeleteVersions(_ context.Context, name string, versions []backend.Version) error {
	if !s.TableExists(name) {
		return backend.ErrTableNotFound(name)
	}
	refs := make([]wal.VersionRef, len(versions))
	for i, v := range versions {
		refs[i] = wal.VersionRef{Row: v.Row, Column: v.Column, Timestamp: v.Timestamp}
	}
	return s.log(&wal.Entry{Op: wal.OpDelete, Table: name, Versions: refs})
}

// log makes e durable, then applies it.
func (s *Store) log(e *wal.Entry) error {
	if s.wal != nil {
		if err := s.wal.Apply(e); err != nil {
			return litetable.WrapIO(err, "failed to write WAL entry for %s", e.Table)
		}
	}
	return s.apply(e)
}

func (s *Store) apply(e *wal.Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if e.Op == wal.OpCreateTable {
		if _, ok := s.tables[e.Table]; !ok {
			s.tables[e.Table] = btree.NewG[entry](degree, lessEntry)
		}
		return nil
	}

	t, ok := s.tables[e.Table]
	if !ok {
		return backend.ErrTableNotFound(e.Table)
	}
	switch e.Op {
	case wal.OpPut:
		for _, c := range e.Cells {
			t.ReplaceOrInsert(entry{
				row:   bytes.Clone(c.Row),
				name:  litetable.EncodeColumnName(c.Column, e.Timestamp),
				value: bytes.Clone(c.Contents),
			})
		}
	case wal.OpDelete:
		for _, v := range e.Versions {
			t.Delete(entry{row: v.Row, name: litetable.EncodeColumnName(v.Column, v.Timestamp)})
		}
	default:
		return fmt.Errorf("unknown WAL op %q", e.Op)
	}
	return nil
}

// snapshot clones every table. Clone is lazy, so this is cheap until the live tables change.
func (s *Store) snapshot() map[string]*table {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	snap := make(map[string]*table, len(s.tables))
	for name, t := range s.tables {
		snap[name] = t.Clone()
	}
	return snap
}

// snapshotTable clones a single table for an unpinned read.
func (s *Store) snapshotTable(name string) (*table, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Acquire hands out a new session in auto-commit mode.
func (s *Store) Acquire(_ context.Context) (backend.Session, error) {
	return &session{store: s, autoCommit: true}, nil
}

// Release ends a session. Releasing twice is an error.
func (s *Store) Release(sess backend.Session) error {
	ms, ok := sess.(*session)
	if !ok || ms.store != s {
		return errors.New("session does not belong to this store")
	}
	if ms.released {
		return errors.New("session already released")
	}
	ms.released = true
	ms.pinned = nil
	return nil
}
