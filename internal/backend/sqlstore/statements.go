package sqlstore

import (
	"strconv"
	"strings"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
)

func listTablesStatement() string {
	return "SELECT name FROM lt_tables"
}

func findTableStatement() string {
	return "SELECT name FROM lt_tables WHERE name = ?"
}

func createTableStatement() string {
	return "INSERT INTO lt_tables (name) VALUES (?)"
}

func deleteVersionStatement() string {
	return "DELETE FROM lt_cells WHERE tbl = ? AND row_name = ? AND col_name = ? AND ts = ?"
}

func insertCellsStatement(table string, cells []litetable.CellValue, ts int64) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO lt_cells (tbl, row_name, col_name, ts, val) VALUES ")
	args := make([]any, 0, len(cells)*5)
	for i, c := range cells {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?)")
		contents := c.Contents
		if contents == nil {
			contents = []byte{}
		}
		args = append(args, table, c.Row, c.Column, ts, contents)
	}
	return b.String(), args
}

// candidateStatement selects up to Limit distinct visible rows per sub-query, tagging each row
// with its batch index. Several sub-queries become one UNION ALL round trip.
func candidateStatement(table string, queries []backend.SubQuery, readTs uint64) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	for i, q := range queries {
		if len(queries) > 1 {
			if i > 0 {
				b.WriteString(" UNION ALL ")
			}
			b.WriteString("(")
		}
		b.WriteString("SELECT DISTINCT row_name, ")
		b.WriteString(strconv.Itoa(q.BatchIndex))
		b.WriteString(" AS batch_num FROM lt_cells WHERE tbl = ?")
		args = append(args, table)
		if q.Reverse {
			b.WriteString(" AND row_name <= ?")
		} else {
			b.WriteString(" AND row_name >= ?")
		}
		args = append(args, q.Start)
		if len(q.End) > 0 {
			if q.Reverse {
				b.WriteString(" AND row_name > ?")
			} else {
				b.WriteString(" AND row_name < ?")
			}
			args = append(args, q.End)
		}
		b.WriteString(" AND ts < ? ORDER BY row_name ")
		args = append(args, sqlTimestamp(readTs))
		if q.Reverse {
			b.WriteString("DESC")
		} else {
			b.WriteString("ASC")
		}
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
		if len(queries) > 1 {
			b.WriteString(")")
		}
	}
	return b.String(), args
}

// fetchStatement reads every version below readTs of rows, narrowed to the selected columns.
func fetchStatement(table string, rows [][]byte, sel litetable.ColumnSelection,
	readTs uint64) (string, []any) {
	var b strings.Builder
	args := []any{table}
	b.WriteString("SELECT row_name, col_name, ts, val FROM lt_cells WHERE tbl = ? AND row_name IN (")
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
		args = append(args, r)
	}
	b.WriteString(")")
	if cols := sel.Columns(); len(cols) > 0 {
		b.WriteString(" AND col_name IN (")
		for i, c := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, c)
		}
		b.WriteString(")")
	}
	b.WriteString(" AND ts < ?")
	args = append(args, sqlTimestamp(readTs))
	return b.String(), args
}
