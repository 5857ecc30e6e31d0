// Package sqlstore keeps tables in a relational database through database/sql. Every litetable
// table shares one cells table keyed by (tbl, row_name, col_name, ts); statements use ?
// placeholders and parenthesized UNION ALL, the MySQL dialect. MySQL through
// go-sql-driver/mysql is the default; any registered driver speaking the dialect works.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/rs/zerolog/log"
)

// DriverMySQL is the driver used when none is configured.
const DriverMySQL = "mysql"

const (
	defaultStatementCache = 256
	// insertChunk bounds the tuples of one INSERT.
	insertChunk = 200
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS lt_tables (
		name VARCHAR(64) NOT NULL PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS lt_cells (
		tbl VARBINARY(64) NOT NULL,
		row_name VARBINARY(1500) NOT NULL,
		col_name VARBINARY(1500) NOT NULL,
		ts BIGINT NOT NULL,
		val LONGBLOB NOT NULL,
		PRIMARY KEY (tbl, row_name, col_name, ts)
	)`,
}

type Config struct {
	// Driver is a registered database/sql driver name. Empty selects MySQL.
	Driver string
	DSN    string
	// StatementCacheSize bounds the statements remembered as validated.
	StatementCacheSize int
	// Isolation of the read-only transaction a pinned session holds.
	Isolation    sql.IsolationLevel
	MaxOpenConns int
	Tables       []string
}

func (c *Config) validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("dsn is required"))
	} else if c.driver() == DriverMySQL {
		if _, err := mysql.ParseDSN(c.DSN); err != nil {
			errs = append(errs, fmt.Errorf("invalid mysql dsn: %w", err))
		}
	}
	if c.StatementCacheSize < 0 {
		errs = append(errs, errors.New("statement cache size cannot be negative"))
	}
	for _, t := range c.Tables {
		if err := backend.ValidateTableName(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Config) driver() string {
	if c.Driver == "" {
		return DriverMySQL
	}
	return c.Driver
}

// open returns a lazily connecting handle; nothing is dialed until Start.
func (c *Config) open() (*sql.DB, error) {
	if c.driver() != DriverMySQL {
		return sql.Open(c.Driver, c.DSN)
	}
	dsn, err := mysql.ParseDSN(c.DSN)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

type Store struct {
	db        *sql.DB
	guard     *statementGuard
	isolation sql.IsolationLevel

	mu     sync.RWMutex
	tables map[string]struct{}

	initial []string
}

func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	size := cfg.StatementCacheSize
	if size == 0 {
		size = defaultStatementCache
	}
	guard, err := newStatementGuard(size)
	if err != nil {
		return nil, err
	}
	db, err := cfg.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.driver(), err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return &Store{
		db:        db,
		guard:     guard,
		isolation: cfg.Isolation,
		tables:    make(map[string]struct{}),
		initial:   cfg.Tables,
	}, nil
}

func (s *Store) Start() error {
	ctx := context.Background()
	if err := s.db.PingContext(ctx); err != nil {
		return litetable.WrapIO(err, "failed to reach database")
	}
	for _, ddl := range schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return litetable.WrapIO(err, "failed to create schema")
		}
	}
	if err := s.loadTables(ctx); err != nil {
		return err
	}
	for _, t := range s.initial {
		if err := s.CreateTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Stop() error {
	return s.db.Close()
}

func (s *Store) Name() string {
	return "SQL Store"
}

func (s *Store) loadTables(ctx context.Context) error {
	query := listTablesStatement()
	if err := s.guard.check(query); err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return litetable.WrapIO(err, "failed to list tables")
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var name []byte
		if err := rows.Scan(&name); err != nil {
			return litetable.WrapIO(err, "failed to list tables")
		}
		s.tables[string(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return litetable.WrapIO(err, "failed to list tables")
	}
	return nil
}

// TableExists consults the known tables, then the database for tables other processes made.
func (s *Store) TableExists(table string) bool {
	s.mu.RLock()
	_, ok := s.tables[table]
	s.mu.RUnlock()
	if ok {
		return true
	}
	ok, err := s.lookupTable(context.Background(), table)
	if err != nil {
		log.Error().Err(err).Msgf("failed to look up table %s", table)
		return false
	}
	return ok
}

func (s *Store) lookupTable(ctx context.Context, table string) (bool, error) {
	query := findTableStatement()
	if err := s.guard.check(query); err != nil {
		return false, err
	}
	var name []byte
	err := s.db.QueryRowContext(ctx, query, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.remember(table)
	return true, nil
}

func (s *Store) remember(table string) {
	s.mu.Lock()
	s.tables[table] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) CreateTable(ctx context.Context, table string) error {
	if err := backend.ValidateTableName(table); err != nil {
		return err
	}
	if s.TableExists(table) {
		return nil
	}
	query := createTableStatement()
	if err := s.guard.check(query); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, table); err != nil {
		// lost a race with another writer
		if ok, lookupErr := s.lookupTable(ctx, table); lookupErr == nil && ok {
			return nil
		}
		return litetable.WrapIO(err, "failed to create table %s", table)
	}
	s.remember(table)
	return nil
}

// inTx runs fn in a read-write transaction.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("failed to roll back write")
		}
		return err
	}
	return tx.Commit()
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	if err := s.guard.check(query); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) Put(ctx context.Context, table string, cells []litetable.CellValue, ts uint64) error {
	if err := backend.ValidatePut(cells, ts); err != nil {
		return err
	}
	if ts >= math.MaxInt64 {
		return litetable.Errorf(litetable.ErrInvalidTimestamp,
			"timestamp %d does not fit a signed column", ts)
	}
	if !s.TableExists(table) {
		return backend.ErrTableNotFound(table)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// a rewrite of an existing version replaces it
		for _, c := range cells {
			if err := s.exec(ctx, tx, deleteVersionStatement(), table, c.Row, c.Column,
				int64(ts)); err != nil {
				return err
			}
		}
		for start := 0; start < len(cells); start += insertChunk {
			chunk := cells[start:min(start+insertChunk, len(cells))]
			query, args := insertCellsStatement(table, chunk, int64(ts))
			if err := s.exec(ctx, tx, query, args...); err != nil {
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

func (s *Store) DeleteVersions(ctx context.Context, table string, versions []backend.Version) error {
	if !s.TableExists(table) {
		return backend.ErrTableNotFound(table)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, v := range versions {
			if err := s.exec(ctx, tx, deleteVersionStatement(), table, v.Row, v.Column,
				sqlTimestamp(v.Timestamp)); err != nil {
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

func (s *Store) Acquire(ctx context.Context) (backend.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &session{store: s, conn: conn, autoCommit: true}, nil
}

func (s *Store) Release(sess backend.Session) error {
	ss, ok := sess.(*session)
	if !ok || ss.store != s {
		return errors.New("session does not belong to this store")
	}
	if ss.released {
		return errors.New("session already released")
	}
	ss.released = true
	ss.unpin()
	return ss.conn.Close()
}

// sqlTimestamp clamps a timestamp to the signed column range.
func sqlTimestamp(ts uint64) int64 {
	if ts > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(ts)
}
