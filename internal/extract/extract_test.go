package extract

import (
	"errors"
	"testing"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
	"github.com/stretchr/testify/require"
)

func version(col string, ts uint64, val string) RawColumn {
	return RawColumn{Name: litetable.EncodeColumnName([]byte(col), ts), Value: []byte(val)}
}

func TestValueCollectorVisibility(t *testing.T) {
	t.Parallel()
	rows := []RawRow{{
		Row: []byte("r"),
		Columns: []RawColumn{
			version("c", 20, "v20"),
			version("c", 10, "v10"),
			version("c", 5, "v5"),
		},
	}}

	tests := map[string]struct {
		startTs  uint64
		expected *litetable.Value
	}{
		"latest below the read timestamp": {
			startTs:  15,
			expected: &litetable.Value{Contents: []byte("v10"), Timestamp: 10},
		},
		"read timestamp is exclusive": {
			startTs:  10,
			expected: &litetable.Value{Contents: []byte("v5"), Timestamp: 5},
		},
		"nothing below": {
			startTs: 5,
		},
		"everything visible": {
			startTs:  100,
			expected: &litetable.Value{Contents: []byte("v20"), Timestamp: 20},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			got, err := Values(rows, tc.startTs, litetable.AllColumns(), CompositeDecoder,
				trace.Disabled())
			req.NoError(err)
			if tc.expected == nil {
				req.Empty(got)
				return
			}
			req.Len(got, 1)
			v, ok := got[0].Get([]byte("c"))
			req.True(ok)
			req.Equal(*tc.expected, v)
		})
	}
}

func TestResolutionIsPerCell(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	rows := []RawRow{
		{Row: []byte("r"), Columns: []RawColumn{
			version("a", 3, "a3"),
			version("b", 9, "b9"),
			version("a", 7, "a7"),
			version("b", 1, "b1"),
		}},
	}

	got, err := Values(rows, 8, litetable.AllColumns(), CompositeDecoder, nil)
	req.NoError(err)
	req.Len(got, 1)

	a, _ := got[0].Get([]byte("a"))
	b, _ := got[0].Get([]byte("b"))
	req.Equal(uint64(7), a.Timestamp)
	req.Equal(uint64(1), b.Timestamp, "a newer version of one column must not hide another column")
}

func TestExtractResultsMaxRow(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		rows     []RawRow
		expected []byte
	}{
		"empty input": {},
		"invisible rows still count": {
			rows: []RawRow{
				{Row: []byte("a"), Columns: []RawColumn{version("c", 1, "x")}},
				{Row: []byte("z"), Columns: []RawColumn{version("c", 50, "x")}},
				{Row: []byte("m")},
			},
			expected: []byte("z"),
		},
		"unsigned ordering": {
			rows: []RawRow{
				{Row: []byte{0x7f}},
				{Row: []byte{0x80}},
			},
			expected: []byte{0x80},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			c := NewValueCollector()
			got, err := ExtractResults(tc.rows, 10, litetable.AllColumns(), CompositeDecoder,
				c.Collect, trace.Disabled())
			req.NoError(err)
			req.Equal(tc.expected, got)
		})
	}
}

func TestExtractResultsDecodeFault(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	rows := []RawRow{{Row: []byte("r"), Columns: []RawColumn{
		version("c", 1, "ok"),
		{Name: []byte("garbage")},
	}}}

	calls := 0
	collect := func(uint64, litetable.ColumnSelection, []byte, []byte, []byte, uint64) { calls++ }
	_, err := ExtractResults(rows, 10, litetable.AllColumns(), CompositeDecoder, collect,
		trace.New(true))
	req.True(errors.Is(err, litetable.ErrDecode))
	req.Equal(1, calls)

	_, _, _, err = PlainDecoder(RawColumn{})
	req.True(errors.Is(err, litetable.ErrDecode))
}

func TestExtractionIsDeterministic(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	rows := []RawRow{
		{Row: []byte("b"), Columns: []RawColumn{version("y", 2, "1"), version("x", 1, "2")}},
		{Row: []byte("a"), Columns: []RawColumn{version("x", 4, "3"), version("x", 3, "4")}},
	}

	first, err := PageFromRangeResults(rows, 5, litetable.AllColumns(), nil, false,
		CompositeDecoder, nil)
	req.NoError(err)
	for i := 0; i < 5; i++ {
		again, err := PageFromRangeResults(rows, 5, litetable.AllColumns(), nil, false,
			CompositeDecoder, nil)
		req.NoError(err)
		req.Equal(first, again)
	}
	req.Equal([]byte("a"), first.Rows[0].Row)
	req.Equal([]byte("b\x00"), first.Token.NextStart)
	req.True(first.Token.HasMore)
}

func TestColumnSelectionFilters(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	rows := []RawRow{{Row: []byte("r"), Columns: []RawColumn{
		version("keep", 1, "k"),
		version("drop", 1, "d"),
	}}}
	got, err := Timestamps(rows, 2, litetable.SelectColumns([]byte("keep")), CompositeDecoder, nil)
	req.NoError(err)
	req.Len(got, 1)
	req.Equal([][]byte{[]byte("keep")}, got[0].ColumnNames())
}

func TestPageFromRangeResults(t *testing.T) {
	t.Parallel()
	rows := []RawRow{
		{Row: []byte("a"), Columns: []RawColumn{version("v", 1, "a")}},
		{Row: []byte("c"), Columns: []RawColumn{version("v", 1, "c")}},
		{Row: []byte("b"), Columns: []RawColumn{version("v", 1, "b")}},
	}

	tests := map[string]struct {
		rows     []RawRow
		end      []byte
		reverse  bool
		order    []string
		expected litetable.Token
	}{
		"forward continues after max row": {
			rows:     rows,
			end:      []byte("z"),
			order:    []string{"a", "b", "c"},
			expected: litetable.Token{NextStart: []byte("c\x00"), HasMore: true},
		},
		"forward reaches end": {
			rows:     rows,
			end:      []byte("c\x00"),
			order:    []string{"a", "b", "c"},
			expected: litetable.Token{NextStart: []byte("c\x00")},
		},
		"reverse continues below min row": {
			rows:    rows,
			reverse: true,
			order:   []string{"c", "b", "a"},
			expected: litetable.Token{
				NextStart: litetable.PreviousLexicographicName([]byte("a")),
				HasMore:   true,
			},
		},
		"empty input ends the scan": {
			end:      []byte("z"),
			expected: litetable.Token{NextStart: []byte("z")},
		},
		"terminal row ends the scan": {
			rows: []RawRow{{Row: litetable.LastRowName(),
				Columns: []RawColumn{version("v", 1, "x")}}},
			order:    []string{string(litetable.LastRowName())},
			expected: litetable.Token{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			page, err := PageFromRangeResults(tc.rows, 2, litetable.AllColumns(), tc.end,
				tc.reverse, CompositeDecoder, trace.Disabled())
			req.NoError(err)
			req.Equal(tc.expected, page.Token)

			var order []string
			for _, r := range page.Rows {
				order = append(order, string(r.Row))
			}
			req.Equal(tc.order, order)
		})
	}
}

func TestAllTimestampsCollector(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	c := NewAllTimestampsCollector()
	rows := []RawRow{{Row: []byte("r"), Columns: []RawColumn{
		version("c", 9, ""),
		version("c", 3, ""),
		version("c", 30, ""),
		version("c", 3, ""),
		version("c", 6, ""),
	}}}
	_, err := ExtractResults(rows, 10, litetable.AllColumns(), CompositeDecoder, c.Collect, nil)
	req.NoError(err)

	got := c.Rows(false)
	req.Len(got, 1)
	ts, ok := got[0].Get([]byte("c"))
	req.True(ok)
	req.Equal([]uint64{3, 6, 9}, ts)
}
