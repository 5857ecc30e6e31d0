// Package ldb stores tables in goleveldb. Every version is one key:
//
//	d/<table>/<encoded row><composite column name> -> value
//
// so a table is a contiguous key range, a row is a contiguous range inside it and versions of a
// column sort newest first. A pinned session reads from a leveldb snapshot.
package ldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/rs/zerolog/log"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const (
	defaultCacheMB = 16
	defaultFDs     = 64
)

type Config struct {
	// Path of the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// CacheMB splits between the block cache and the write buffer.
	CacheMB int
	// Sync fsyncs every write.
	Sync   bool
	Tables []string
}

func (c *Config) validate() error {
	var errs []error
	if c.Path == "" && !c.InMemory {
		errs = append(errs, errors.New("path is required unless in memory"))
	}
	if c.CacheMB < 0 {
		errs = append(errs, errors.New("cache size cannot be negative"))
	}
	for _, t := range c.Tables {
		if err := backend.ValidateTableName(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Store struct {
	db      *leveldb.DB
	sync    bool
	initial []string
}

func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cache := cfg.CacheMB
	if cache == 0 {
		cache = defaultCacheMB
	}
	o := &opt.Options{
		OpenFilesCacheCapacity: defaultFDs,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}

	var (
		db  *leveldb.DB
		err error
	)
	if cfg.InMemory {
		db, err = leveldb.Open(storage.NewMemStorage(), o)
	} else {
		db, err = leveldb.OpenFile(cfg.Path, o)
		if lerrors.IsCorrupted(err) {
			log.Warn().Err(err).Msgf("leveldb at %s is corrupted, recovering", cfg.Path)
			db, err = leveldb.RecoverFile(cfg.Path, o)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}

	return &Store{
		db:      db,
		sync:    cfg.Sync,
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
	return "LevelDB Store"
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

func withPrefix(prefix, rest []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(rest))
	key = append(key, prefix...)
	return append(key, rest...)
}

func (s *Store) TableExists(table string) bool {
	ok, err := s.db.Has(metaKey(table), nil)
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
	if err := s.db.Put(metaKey(table), []byte{1}, s.writeOptions()); err != nil {
		return litetable.WrapIO(err, "failed to create table %s", table)
	}
	return nil
}

func (s *Store) writeOptions() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: s.sync}
}

func (s *Store) Put(_ context.Context, table string, cells []litetable.CellValue, ts uint64) error {
	if err := backend.ValidatePut(cells, ts); err != nil {
		return err
	}
	if !s.TableExists(table) {
		return backend.ErrTableNotFound(table)
	}
	prefix := tablePrefix(table)
	batch := new(leveldb.Batch)
	for _, c := range cells {
		batch.Put(dataKey(prefix, c.Row, litetable.EncodeColumnName(c.Column, ts)), c.Contents)
	}
	if err := s.db.Write(batch, s.writeOptions()); err != nil {
		return litetable.WrapIO(err, "failed to write %d cells to %s", len(cells), table)
	}
	return nil
}

func (s *Store) DeleteVersions(_ context.Context, table string, versions []backend.Version) error {
	if !s.TableExists(table) {
		return backend.ErrTableNotFound(table)
	}
	prefix := tablePrefix(table)
	batch := new(leveldb.Batch)
	for _, v := range versions {
		batch.Delete(dataKey(prefix, v.Row, litetable.EncodeColumnName(v.Column, v.Timestamp)))
	}
	if err := s.db.Write(batch, s.writeOptions()); err != nil {
		return litetable.WrapIO(err, "failed to delete %d versions from %s", len(versions), table)
	}
	return nil
}

func (s *Store) Acquire(_ context.Context) (backend.Session, error) {
	return &session{store: s, autoCommit: true}, nil
}

func (s *Store) Release(sess backend.Session) error {
	ls, ok := sess.(*session)
	if !ok || ls.store != s {
		return errors.New("session does not belong to this store")
	}
	if ls.released {
		return errors.New("session already released")
	}
	ls.released = true
	ls.unpin()
	return nil
}
