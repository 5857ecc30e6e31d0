package memsql

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
)

// record maps a lower-cased column name to an int64 or []byte value.
type record map[string]any

type change struct {
	insert  bool
	table   string
	records []record
	where   sqlparser.Expr
	args    map[string]any
}

func (m *change) apply(t *tables) (int64, error) {
	if !m.insert {
		return t.delete(m.where, m.args)
	}
	for _, rec := range m.records {
		if err := t.insert(m.table, rec); err != nil {
			return 0, err
		}
	}
	return int64(len(m.records)), nil
}

// mutation turns an INSERT or DELETE into a change. DELETE always targets lt_cells.
func mutation(st sqlparser.Statement, args map[string]any) (*change, error) {
	switch s := st.(type) {
	case *sqlparser.Insert:
		values, ok := s.Rows.(sqlparser.Values)
		if !ok {
			return nil, fmt.Errorf("memsql: unsupported insert source %T", s.Rows)
		}
		cols := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			cols[i] = strings.ToLower(c.String())
		}
		m := &change{insert: true, table: sqlparser.String(s.Table)}
		for _, tuple := range values {
			if len(tuple) != len(cols) {
				return nil, fmt.Errorf("memsql: %d values for %d columns", len(tuple), len(cols))
			}
			rec := record{}
			for i, e := range tuple {
				v, err := eval(e, nil, args)
				if err != nil {
					return nil, err
				}
				rec[cols[i]] = v
			}
			m.records = append(m.records, rec)
		}
		return m, nil
	case *sqlparser.Delete:
		m := &change{table: CellsTable, args: args}
		if s.Where != nil {
			m.where = s.Where.Expr
		}
		return m, nil
	}
	return nil, fmt.Errorf("memsql: unsupported statement %T", st)
}

func runQuery(t *tables, st sqlparser.Statement, args map[string]any) (*resultSet, error) {
	sel, ok := st.(sqlparser.SelectStatement)
	if !ok {
		return nil, fmt.Errorf("memsql: %T is not a query", st)
	}
	return runSelect(t, sel, args)
}

func runSelect(t *tables, st sqlparser.SelectStatement, args map[string]any) (*resultSet, error) {
	switch s := st.(type) {
	case *sqlparser.Select:
		return selectRows(t, s, args)
	case *sqlparser.ParenSelect:
		return runSelect(t, s.Select, args)
	case *sqlparser.Union:
		left, err := runSelect(t, s.Left, args)
		if err != nil {
			return nil, err
		}
		right, err := runSelect(t, s.Right, args)
		if err != nil {
			return nil, err
		}
		if len(left.columns) != len(right.columns) {
			return nil, fmt.Errorf("memsql: union of %d and %d columns", len(left.columns),
				len(right.columns))
		}
		out := &resultSet{columns: left.columns, rows: append(left.rows, right.rows...)}
		if !strings.EqualFold(s.Type, "union all") {
			out.rows = distinct(out.rows)
		}
		return out, out.orderAndLimit(s.OrderBy, s.Limit, args)
	}
	return nil, fmt.Errorf("memsql: unsupported query %T", st)
}

type projection struct {
	name string
	expr sqlparser.Expr
}

func selectRows(t *tables, s *sqlparser.Select, args map[string]any) (*resultSet, error) {
	if len(s.From) != 1 {
		return nil, fmt.Errorf("memsql: expected one table, got %d", len(s.From))
	}
	from, ok := s.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, fmt.Errorf("memsql: unsupported table expression %T", s.From[0])
	}
	table := sqlparser.String(from.Expr)

	var projections []projection
	for _, se := range s.SelectExprs {
		switch e := se.(type) {
		case *sqlparser.StarExpr:
			cols, err := t.columns(table)
			if err != nil {
				return nil, err
			}
			for _, c := range cols {
				projections = append(projections, projection{
					name: c,
					expr: &sqlparser.ColName{Name: sqlparser.NewColIdent(c)},
				})
			}
		case *sqlparser.AliasedExpr:
			name := strings.ToLower(e.As.String())
			if name == "" {
				name = strings.ToLower(sqlparser.String(e.Expr))
			}
			projections = append(projections, projection{name: name, expr: e.Expr})
		default:
			return nil, fmt.Errorf("memsql: unsupported select expression %T", se)
		}
	}

	var where sqlparser.Expr
	if s.Where != nil {
		where = s.Where.Expr
	}

	out := &resultSet{}
	for _, p := range projections {
		out.columns = append(out.columns, p.name)
	}

	var evalErr error
	err := t.scan(table, tableFilter(where, args), func(rec record) bool {
		ok, err := matches(where, rec, args)
		if err != nil {
			evalErr = err
			return false
		}
		if !ok {
			return true
		}
		row := make([]any, len(projections))
		for i, p := range projections {
			if row[i], err = eval(p.expr, rec, args); err != nil {
				evalErr = err
				return false
			}
		}
		out.rows = append(out.rows, row)
		return true
	})
	if err != nil {
		return nil, err
	}
	if evalErr != nil {
		return nil, evalErr
	}
	if s.Distinct != "" {
		out.rows = distinct(out.rows)
	}
	return out, out.orderAndLimit(s.OrderBy, s.Limit, args)
}

// tableFilter finds a top-level "tbl = value" conjunct so the scan can skip other tables.
func tableFilter(where sqlparser.Expr, args map[string]any) []byte {
	switch e := where.(type) {
	case *sqlparser.AndExpr:
		if f := tableFilter(e.Left, args); f != nil {
			return f
		}
		return tableFilter(e.Right, args)
	case *sqlparser.ParenExpr:
		return tableFilter(e.Expr, args)
	case *sqlparser.ComparisonExpr:
		col, ok := e.Left.(*sqlparser.ColName)
		if !ok || e.Operator != sqlparser.EqualStr || col.Name.Lowered() != colTable {
			return nil
		}
		v, err := eval(e.Right, nil, args)
		if err != nil {
			return nil
		}
		if b, ok := normalize(v).([]byte); ok {
			return b
		}
	}
	return nil
}

func matches(where sqlparser.Expr, rec record, args map[string]any) (bool, error) {
	if where == nil {
		return true, nil
	}
	switch e := where.(type) {
	case *sqlparser.AndExpr:
		l, err := matches(e.Left, rec, args)
		if err != nil || !l {
			return false, err
		}
		return matches(e.Right, rec, args)
	case *sqlparser.OrExpr:
		l, err := matches(e.Left, rec, args)
		if err != nil || l {
			return l, err
		}
		return matches(e.Right, rec, args)
	case *sqlparser.ParenExpr:
		return matches(e.Expr, rec, args)
	case *sqlparser.ComparisonExpr:
		return compareExpr(e, rec, args)
	}
	return false, fmt.Errorf("memsql: unsupported condition %T", where)
}

func compareExpr(e *sqlparser.ComparisonExpr, rec record, args map[string]any) (bool, error) {
	left, err := eval(e.Left, rec, args)
	if err != nil {
		return false, err
	}
	switch e.Operator {
	case sqlparser.InStr, sqlparser.NotInStr:
		tuple, ok := e.Right.(sqlparser.ValTuple)
		if !ok {
			return false, fmt.Errorf("memsql: unsupported IN operand %T", e.Right)
		}
		found := false
		for _, te := range tuple {
			v, err := eval(te, rec, args)
			if err != nil {
				return false, err
			}
			c, err := compareValues(left, v)
			if err != nil {
				return false, err
			}
			if c == 0 {
				found = true
				break
			}
		}
		return found == (e.Operator == sqlparser.InStr), nil
	}

	right, err := eval(e.Right, rec, args)
	if err != nil {
		return false, err
	}
	c, err := compareValues(left, right)
	if err != nil {
		return false, err
	}
	switch e.Operator {
	case sqlparser.EqualStr:
		return c == 0, nil
	case sqlparser.NotEqualStr:
		return c != 0, nil
	case sqlparser.LessThanStr:
		return c < 0, nil
	case sqlparser.LessEqualStr:
		return c <= 0, nil
	case sqlparser.GreaterThanStr:
		return c > 0, nil
	case sqlparser.GreaterEqualStr:
		return c >= 0, nil
	}
	return false, fmt.Errorf("memsql: unsupported operator %q", e.Operator)
}

func eval(e sqlparser.Expr, rec record, args map[string]any) (any, error) {
	switch x := e.(type) {
	case *sqlparser.ColName:
		v, ok := rec[x.Name.Lowered()]
		if !ok {
			return nil, fmt.Errorf("memsql: unknown column %q", x.Name.String())
		}
		return v, nil
	case *sqlparser.SQLVal:
		switch x.Type {
		case sqlparser.ValArg:
			v, ok := args[string(x.Val)]
			if !ok {
				return nil, fmt.Errorf("memsql: missing argument %s", x.Val)
			}
			return normalize(v), nil
		case sqlparser.IntVal:
			return strconv.ParseInt(string(x.Val), 10, 64)
		case sqlparser.StrVal:
			return bytes.Clone(x.Val), nil
		}
		return nil, fmt.Errorf("memsql: unsupported literal %s", sqlparser.String(x))
	case *sqlparser.ParenExpr:
		return eval(x.Expr, rec, args)
	}
	return nil, fmt.Errorf("memsql: unsupported expression %T", e)
}

func normalize(v any) any {
	switch x := v.(type) {
	case string:
		return []byte(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	}
	return v
}

func compareValues(a, b any) (int, error) {
	switch x := normalize(a).(type) {
	case []byte:
		if y, ok := normalize(b).([]byte); ok {
			return bytes.Compare(x, y), nil
		}
	case int64:
		if y, ok := normalize(b).(int64); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("memsql: cannot compare %T with %T", a, b)
}

func distinct(rows [][]any) [][]any {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		k := fmt.Sprintf("%q", r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// resultSet is a fully materialized query result.
type resultSet struct {
	columns []string
	rows    [][]any
	pos     int
}

var _ driver.Rows = (*resultSet)(nil)

func (r *resultSet) Columns() []string { return r.columns }
func (r *resultSet) Close() error      { return nil }

func (r *resultSet) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	for i, v := range r.rows[r.pos] {
		dest[i] = v
	}
	r.pos++
	return nil
}

// orderAndLimit sorts by output columns and truncates.
func (r *resultSet) orderAndLimit(order sqlparser.OrderBy, limit *sqlparser.Limit,
	args map[string]any) error {
	if len(order) > 0 {
		idx := make([]int, len(order))
		for i, o := range order {
			idx[i] = -1
			for j, c := range r.columns {
				if c == strings.ToLower(sqlparser.String(o.Expr)) {
					idx[i] = j
				}
			}
			if idx[i] < 0 {
				return fmt.Errorf("memsql: cannot order by %s", sqlparser.String(o.Expr))
			}
		}
		var sortErr error
		sort.SliceStable(r.rows, func(a, b int) bool {
			for i, o := range order {
				c, err := compareValues(r.rows[a][idx[i]], r.rows[b][idx[i]])
				if err != nil {
					sortErr = err
					return false
				}
				if c == 0 {
					continue
				}
				if strings.EqualFold(o.Direction, "desc") {
					return c > 0
				}
				return c < 0
			}
			return false
		})
		if sortErr != nil {
			return sortErr
		}
	}
	if limit == nil {
		return nil
	}
	offset := int64(0)
	if limit.Offset != nil {
		v, err := eval(limit.Offset, nil, args)
		if err != nil {
			return err
		}
		offset, _ = v.(int64)
	}
	count := int64(len(r.rows))
	if limit.Rowcount != nil {
		v, err := eval(limit.Rowcount, nil, args)
		if err != nil {
			return err
		}
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("memsql: limit must be an integer")
		}
		count = n
	}
	if offset > int64(len(r.rows)) {
		offset = int64(len(r.rows))
	}
	end := offset + count
	if end > int64(len(r.rows)) {
		end = int64(len(r.rows))
	}
	r.rows = r.rows[offset:end]
	return nil
}
