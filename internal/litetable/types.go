package litetable

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Cell addresses a single (row, column) pair.
type Cell struct {
	Row    []byte `json:"row"`
	Column []byte `json:"column"`
}

// Value is the resolved contents of a cell and the timestamp of the version they came from.
type Value struct {
	Contents  []byte `json:"contents"`
	Timestamp uint64 `json:"timestamp"`
}

// CellValue is a cell and the contents to write into it.
type CellValue struct {
	Cell
	Contents []byte `json:"contents"`
}

// Column is a named entry inside a RowResult.
type Column[T any] struct {
	Name  []byte `json:"name"`
	Value T      `json:"value"`
}

// RowResult defines a row of resolved data: the row key and its columns sorted by name.
//
// Example:
//
//	RowResult[Value]{
//	  Row: []byte("row1"),
//	  Columns: []Column[Value]{
//	    {Name: []byte("a"), Value: Value{Contents: []byte("v1"), Timestamp: 10}},
//	    {Name: []byte("b"), Value: Value{Contents: []byte("v2"), Timestamp: 12}},
//	  },
//	}
//
// A RowResult is built once per extraction and never modified afterwards.
type RowResult[T any] struct {
	Row     []byte      `json:"row"`
	Columns []Column[T] `json:"columns"`
}

// Get returns the value stored for col.
func (r RowResult[T]) Get(col []byte) (T, bool) {
	i := sort.Search(len(r.Columns), func(i int) bool {
		return Compare(r.Columns[i].Name, col) >= 0
	})
	if i < len(r.Columns) && Compare(r.Columns[i].Name, col) == 0 {
		return r.Columns[i].Value, true
	}
	var zero T
	return zero, false
}

// ColumnNames lists the column names in order.
func (r RowResult[T]) ColumnNames() [][]byte {
	names := make([][]byte, 0, len(r.Columns))
	for _, c := range r.Columns {
		names = append(names, c.Name)
	}
	return names
}

// IsEmpty reports whether the row has no columns.
func (r RowResult[T]) IsEmpty() bool {
	return len(r.Columns) == 0
}

// FilterColumns returns a copy of the row holding only the columns sel accepts.
func (r RowResult[T]) FilterColumns(sel ColumnSelection) RowResult[T] {
	if sel.AllColumnsSelected() {
		return r
	}
	out := RowResult[T]{Row: r.Row}
	for _, c := range r.Columns {
		if sel.Contains(c.Name) {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

// ColumnSelection is either every column or a fixed set of column names. The zero value
// selects every column.
type ColumnSelection struct {
	columns map[string]struct{}
}

// AllColumns selects every column.
func AllColumns() ColumnSelection {
	return ColumnSelection{}
}

// SelectColumns selects the named columns. Selecting nothing is the same as selecting
// everything.
func SelectColumns(cols ...[]byte) ColumnSelection {
	if len(cols) == 0 {
		return AllColumns()
	}
	s := ColumnSelection{columns: make(map[string]struct{}, len(cols))}
	for _, c := range cols {
		s.columns[string(c)] = struct{}{}
	}
	return s
}

// AllColumnsSelected reports whether every column passes the selection.
func (s ColumnSelection) AllColumnsSelected() bool {
	return len(s.columns) == 0
}

// Contains reports whether col passes the selection.
func (s ColumnSelection) Contains(col []byte) bool {
	if s.AllColumnsSelected() {
		return true
	}
	_, ok := s.columns[string(col)]
	return ok
}

// Columns returns the selected names sorted, or nil when every column is selected.
func (s ColumnSelection) Columns() [][]byte {
	if s.AllColumnsSelected() {
		return nil
	}
	names := make([]string, 0, len(s.columns))
	for c := range s.columns {
		names = append(names, c)
	}
	sort.Strings(names)
	out := make([][]byte, len(names))
	for i, n := range names {
		out[i] = []byte(n)
	}
	return out
}

func (s ColumnSelection) key() string {
	if s.AllColumnsSelected() {
		return "*"
	}
	var sb strings.Builder
	for i, c := range s.Columns() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(hex.EncodeToString(c))
	}
	return sb.String()
}

// RangeRequest describes one range scan. It is immutable: build it with NewRangeRequest and
// derive continuations with WithStart.
type RangeRequest struct {
	startInclusive []byte
	endExclusive   []byte
	reverse        bool
	columns        ColumnSelection
	batchHint      int
}

// RangeOption configures a RangeRequest.
type RangeOption func(r *RangeRequest)

// WithStart sets the inclusive start row. Empty means unbounded.
func WithStart(row []byte) RangeOption {
	return func(r *RangeRequest) {
		r.startInclusive = nilIfEmpty(row)
	}
}

// WithEnd sets the exclusive end row. Empty means unbounded.
func WithEnd(row []byte) RangeOption {
	return func(r *RangeRequest) {
		r.endExclusive = nilIfEmpty(row)
	}
}

// WithReverse scans from the start row downwards.
func WithReverse(reverse bool) RangeOption {
	return func(r *RangeRequest) {
		r.reverse = reverse
	}
}

// WithColumns restricts the columns returned for each row.
func WithColumns(cols ...[]byte) RangeOption {
	return func(r *RangeRequest) {
		r.columns = SelectColumns(cols...)
	}
}

// WithBatchHint caps the number of rows per page. Zero leaves the hint unset.
func WithBatchHint(n int) RangeOption {
	return func(r *RangeRequest) {
		r.batchHint = n
	}
}

// NewRangeRequest builds and validates a range request.
func NewRangeRequest(opts ...RangeOption) (RangeRequest, error) {
	var r RangeRequest
	for _, opt := range opts {
		opt(&r)
	}

	if len(r.startInclusive) > MaxNameLength {
		return RangeRequest{}, newError(ErrInvalidRequest, "start row is longer than %d bytes",
			MaxNameLength)
	}
	if len(r.endExclusive) > MaxNameLength {
		return RangeRequest{}, newError(ErrInvalidRequest, "end row is longer than %d bytes",
			MaxNameLength)
	}
	if r.batchHint < 0 {
		return RangeRequest{}, newError(ErrInvalidRequest, "batch hint cannot be negative: %d",
			r.batchHint)
	}
	return r, nil
}

// MustRangeRequest is NewRangeRequest for static requests; it panics on invalid input.
func MustRangeRequest(opts ...RangeOption) RangeRequest {
	r, err := NewRangeRequest(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// All scans an entire table forward.
func All() RangeRequest {
	return RangeRequest{}
}

func (r RangeRequest) StartInclusive() []byte           { return clone(r.startInclusive) }
func (r RangeRequest) EndExclusive() []byte             { return clone(r.endExclusive) }
func (r RangeRequest) IsReverse() bool                  { return r.reverse }
func (r RangeRequest) ColumnSelection() ColumnSelection { return r.columns }
func (r RangeRequest) BatchHint() int                   { return r.batchHint }

// ContainsColumn reports whether col is returned by this request.
func (r RangeRequest) ContainsColumn(col []byte) bool {
	return r.columns.Contains(col)
}

// WithStart returns a copy of the request starting at row; used to fetch the next page.
func (r RangeRequest) WithStart(row []byte) RangeRequest {
	r.startInclusive = nilIfEmpty(row)
	return r
}

// WithBatchHint returns a copy of the request with a different hint.
func (r RangeRequest) WithBatchHint(n int) RangeRequest {
	if n < 0 {
		n = 0
	}
	r.batchHint = n
	return r
}

// IsDegenerate reports whether the start bound lies strictly beyond the end bound in the scan
// direction. Degenerate requests return no rows.
func (r RangeRequest) IsDegenerate() bool {
	if len(r.startInclusive) == 0 || len(r.endExclusive) == 0 {
		return false
	}
	cmp := Compare(r.startInclusive, r.endExclusive)
	if r.reverse {
		return cmp < 0
	}
	return cmp > 0
}

// IsEmptyRange reports whether no row can possibly satisfy the bounds.
func (r RangeRequest) IsEmptyRange() bool {
	if r.IsDegenerate() {
		return true
	}
	return len(r.startInclusive) > 0 && len(r.endExclusive) > 0 &&
		Compare(r.startInclusive, r.endExclusive) == 0
}

// InRange reports whether row lies within [start, end) for forward scans or (end, start] for
// reverse scans.
func (r RangeRequest) InRange(row []byte) bool {
	if r.reverse {
		if len(r.startInclusive) > 0 && Compare(r.startInclusive, row) < 0 {
			return false
		}
		return len(r.endExclusive) == 0 || Compare(row, r.endExclusive) > 0
	}
	if len(r.startInclusive) > 0 && Compare(r.startInclusive, row) > 0 {
		return false
	}
	return len(r.endExclusive) == 0 || Compare(row, r.endExclusive) < 0
}

// Key is a canonical string for the request. Two requests with the same key return the same
// page for the same table and timestamp.
func (r RangeRequest) Key() string {
	var sb strings.Builder
	sb.WriteString(hex.EncodeToString(r.startInclusive))
	sb.WriteByte('|')
	sb.WriteString(hex.EncodeToString(r.endExclusive))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatBool(r.reverse))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(r.batchHint))
	sb.WriteByte('|')
	sb.WriteString(r.columns.key())
	return sb.String()
}

// String is used for logging.
func (r RangeRequest) String() string {
	dir := "forward"
	if r.reverse {
		dir = "reverse"
	}
	return "start=" + hex.EncodeToString(r.startInclusive) +
		" end=" + hex.EncodeToString(r.endExclusive) +
		" " + dir +
		" hint=" + strconv.Itoa(r.batchHint) +
		" columns=" + r.columns.key()
}
