package memsql

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru"
)

// Table and column names the driver serves.
const (
	TablesTable = "lt_tables"
	CellsTable  = "lt_cells"

	colName  = "name"
	colTable = "tbl"
	colRow   = "row_name"
	colCol   = "col_name"
	colTs    = "ts"
	colValue = "val"
)

var errDuplicate = errors.New("memsql: duplicate key")

type cell struct {
	tbl []byte
	row []byte
	col []byte
	ts  int64
	val []byte
}

func lessCell(a, b cell) bool {
	if c := bytes.Compare(a.tbl, b.tbl); c != 0 {
		return c < 0
	}
	if c := bytes.Compare(a.row, b.row); c != 0 {
		return c < 0
	}
	if c := bytes.Compare(a.col, b.col); c != 0 {
		return c < 0
	}
	return a.ts < b.ts
}

func (c cell) record() record {
	return record{
		colTable: c.tbl,
		colRow:   c.row,
		colCol:   c.col,
		colTs:    c.ts,
		colValue: c.val,
	}
}

// tables is one consistent view of the database.
type tables struct {
	names map[string]struct{}
	cells *btree.BTreeG[cell]
}

func (t *tables) clone() *tables {
	names := make(map[string]struct{}, len(t.names))
	for n := range t.names {
		names[n] = struct{}{}
	}
	return &tables{names: names, cells: t.cells.Clone()}
}

// scan calls fn with every record of table. When only is set, lt_cells is scanned for that
// table alone.
func (t *tables) scan(table string, only []byte, fn func(record) bool) error {
	switch table {
	case TablesTable:
		for n := range t.names {
			if !fn(record{colName: []byte(n)}) {
				return nil
			}
		}
	case CellsTable:
		if only == nil {
			t.cells.Ascend(func(c cell) bool { return fn(c.record()) })
			return nil
		}
		t.cells.AscendGreaterOrEqual(cell{tbl: only}, func(c cell) bool {
			if !bytes.Equal(c.tbl, only) {
				return false
			}
			return fn(c.record())
		})
	default:
		return fmt.Errorf("memsql: unknown table %q", table)
	}
	return nil
}

func (t *tables) columns(table string) ([]string, error) {
	switch table {
	case TablesTable:
		return []string{colName}, nil
	case CellsTable:
		return []string{colTable, colRow, colCol, colTs, colValue}, nil
	}
	return nil, fmt.Errorf("memsql: unknown table %q", table)
}

func (t *tables) insert(table string, rec record) error {
	switch table {
	case TablesTable:
		name, err := bytesOf(rec, colName)
		if err != nil {
			return err
		}
		if _, ok := t.names[string(name)]; ok {
			return errDuplicate
		}
		t.names[string(name)] = struct{}{}
		return nil
	case CellsTable:
		c, err := cellOf(rec)
		if err != nil {
			return err
		}
		if t.cells.Has(c) {
			return errDuplicate
		}
		t.cells.ReplaceOrInsert(c)
		return nil
	}
	return fmt.Errorf("memsql: unknown table %q", table)
}

func (t *tables) delete(where sqlparser.Expr, args map[string]any) (int64, error) {
	var (
		matched []cell
		evalErr error
	)
	t.cells.Ascend(func(c cell) bool {
		ok, err := matches(where, c.record(), args)
		if err != nil {
			evalErr = err
			return false
		}
		if ok {
			matched = append(matched, c)
		}
		return true
	})
	if evalErr != nil {
		return 0, evalErr
	}
	for _, c := range matched {
		t.cells.Delete(c)
	}
	return int64(len(matched)), nil
}

func cellOf(rec record) (cell, error) {
	var (
		c   cell
		err error
	)
	if c.tbl, err = bytesOf(rec, colTable); err != nil {
		return c, err
	}
	if c.row, err = bytesOf(rec, colRow); err != nil {
		return c, err
	}
	if c.col, err = bytesOf(rec, colCol); err != nil {
		return c, err
	}
	if c.val, err = bytesOf(rec, colValue); err != nil {
		return c, err
	}
	ts, ok := rec[colTs].(int64)
	if !ok {
		return c, fmt.Errorf("memsql: column %s must be an integer", colTs)
	}
	c.ts = ts
	return c, nil
}

func bytesOf(rec record, col string) ([]byte, error) {
	switch v := rec[col].(type) {
	case []byte:
		return bytes.Clone(v), nil
	case string:
		return []byte(v), nil
	case nil:
		if col == colValue {
			return []byte{}, nil
		}
	}
	return nil, fmt.Errorf("memsql: column %s must be bytes", col)
}

type database struct {
	mu     sync.Mutex
	data   *tables
	parsed *lru.Cache
}

func newDatabase() *database {
	return &database{
		data: &tables{
			names: map[string]struct{}{},
			cells: btree.NewG[cell](32, lessCell),
		},
		parsed: newParsedCache(),
	}
}

// snapshot returns a view that later writes do not affect.
func (d *database) snapshot() *tables {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data.clone()
}

func (d *database) apply(m *change) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := d.data.clone()
	n, err := m.apply(next)
	if err != nil {
		return 0, err
	}
	d.data = next
	return n, nil
}

// applyAll applies every change or none of them.
func (d *database) applyAll(changes []*change) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := d.data.clone()
	for _, m := range changes {
		if _, err := m.apply(next); err != nil {
			return err
		}
	}
	d.data = next
	return nil
}

func (d *database) parse(query string) (sqlparser.Statement, error) {
	if st, ok := d.parsed.Get(query); ok {
		return st.(sqlparser.Statement), nil
	}
	st, err := sqlparser.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("memsql: %w", err)
	}
	d.parsed.Add(query, st)
	return st, nil
}
