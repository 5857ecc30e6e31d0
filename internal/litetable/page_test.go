package litetable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenAfter(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		reverse  bool
		lastRow  []byte
		end      []byte
		expected Token
	}{
		"no rows, open end": {
			expected: Token{},
		},
		"no rows, bounded end": {
			end:      []byte("z"),
			expected: Token{NextStart: []byte("z")},
		},
		"more rows before end": {
			lastRow:  []byte("m"),
			end:      []byte("z"),
			expected: Token{NextStart: []byte("m\x00"), HasMore: true},
		},
		"successor reaches end": {
			lastRow:  []byte("m"),
			end:      []byte("m\x00"),
			expected: Token{NextStart: []byte("m\x00")},
		},
		"terminal row forward": {
			lastRow:  LastRowName(),
			end:      nil,
			expected: Token{},
		},
		"terminal row forward, bounded": {
			lastRow:  LastRowName(),
			end:      []byte("q"),
			expected: Token{NextStart: []byte("q")},
		},
		"reverse continues below last row": {
			reverse:  true,
			lastRow:  []byte("m\x00"),
			end:      []byte("a"),
			expected: Token{NextStart: []byte("m"), HasMore: true},
		},
		"reverse predecessor reaches end": {
			reverse:  true,
			lastRow:  []byte("a\x00"),
			end:      []byte("a"),
			expected: Token{NextStart: []byte("a")},
		},
		"reverse terminal row": {
			reverse:  true,
			lastRow:  FirstRowName(),
			expected: Token{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			req.Equal(tc.expected, TokenAfter(tc.reverse, tc.lastRow, tc.end))
		})
	}
}

func TestPageIsEnd(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	var nilPage *Page[Value]
	req.True(nilPage.IsEnd())
	req.True(EmptyPage[Value]([]byte("z")).IsEnd())
	req.Equal([]byte("z"), EmptyPage[uint64]([]byte("z")).Token.NextStart)
	req.False((&Page[Value]{Token: Token{NextStart: []byte("b"), HasMore: true}}).IsEnd())
}
