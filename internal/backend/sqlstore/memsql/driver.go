// Package memsql is a database/sql driver over an in-process database holding the two tables
// the sql backend uses. It understands the statement shapes sqlstore generates, parsed with
// vitess-sqlparser, and nothing more.
package memsql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// DriverName is the name the driver registers under.
const DriverName = "litetable-memsql"

const parsedCacheSize = 512

func init() {
	sql.Register(DriverName, &Driver{})
}

var (
	registryMu sync.Mutex
	registry   = map[string]*database{}
)

// lookup returns the database named dsn, creating it on first use. Connections opened with the
// same dsn share data.
func lookup(dsn string) *database {
	registryMu.Lock()
	defer registryMu.Unlock()
	db, ok := registry[dsn]
	if !ok {
		db = newDatabase()
		registry[dsn] = db
	}
	return db
}

// Drop forgets the database named dsn.
func Drop(dsn string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, dsn)
}

type Driver struct{}

func (d *Driver) Open(dsn string) (driver.Conn, error) {
	if dsn == "" {
		return nil, errors.New("memsql: dsn names the database and cannot be empty")
	}
	return &conn{db: lookup(dsn)}, nil
}

type conn struct {
	db *database
	tx *tx
}

var (
	_ driver.Conn           = (*conn)(nil)
	_ driver.ConnBeginTx    = (*conn)(nil)
	_ driver.QueryerContext = (*conn)(nil)
	_ driver.ExecerContext  = (*conn)(nil)
)

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error {
	c.tx = nil
	return nil
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if c.tx != nil {
		return nil, errors.New("memsql: transaction already open")
	}
	c.tx = &tx{
		conn:     c,
		readOnly: opts.ReadOnly,
		view:     c.db.snapshot(),
	}
	return c.tx, nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := c.db.parse(query)
	if err != nil {
		return nil, err
	}
	view := c.tx.snapshot(c.db)
	return runQuery(view, st, bindArgs(args))
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isDDL(query) {
		return driver.RowsAffected(0), nil
	}
	st, err := c.db.parse(query)
	if err != nil {
		return nil, err
	}
	m, err := mutation(st, bindArgs(args))
	if err != nil {
		return nil, err
	}
	if c.tx != nil {
		if c.tx.readOnly {
			return nil, errors.New("memsql: write in a read-only transaction")
		}
		c.tx.pending = append(c.tx.pending, m)
		return driver.RowsAffected(0), nil
	}
	n, err := c.db.apply(m)
	if err != nil {
		return nil, err
	}
	return driver.RowsAffected(n), nil
}

// isDDL matches the schema statements sqlstore issues on start. Both tables always exist.
func isDDL(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "CREATE TABLE")
}

func bindArgs(args []driver.NamedValue) map[string]any {
	bound := make(map[string]any, len(args))
	for _, a := range args {
		// positional placeholders parse as :v1, :v2, ...
		bound[fmt.Sprintf(":v%d", a.Ordinal)] = a.Value
	}
	return bound
}

type tx struct {
	conn     *conn
	readOnly bool
	view     *tables
	pending  []*change
}

// Commit applies the buffered writes atomically.
func (t *tx) Commit() error {
	defer func() {
		t.conn.tx = nil
	}()
	if len(t.pending) == 0 {
		return nil
	}
	return t.conn.db.applyAll(t.pending)
}

// snapshot returns the view a query reads: the transaction's own view, or a fresh one in
// autocommit mode.
func (t *tx) snapshot(db *database) *tables {
	if t == nil {
		return db.snapshot()
	}
	return t.view
}

func (t *tx) Rollback() error {
	t.conn.tx = nil
	return nil
}

type stmt struct {
	conn  *conn
	query string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.conn.ExecContext(context.Background(), s.query, named(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.conn.QueryContext(context.Background(), s.query, named(args))
}

func named(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, a := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
	}
	return out
}

// newParsedCache is split out for the database constructor.
func newParsedCache() *lru.Cache {
	c, err := lru.New(parsedCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return c
}
