package litetable

// Token says where the next page of a scan starts.
//
// HasMore=false with a non-nil NextStart is the last page; NextStart is still where a further
// page would begin. NextStart=nil with HasMore=false means the scan reached the end of the
// keyspace.
type Token struct {
	NextStart []byte `json:"next_start,omitempty"`
	HasMore   bool   `json:"has_more"`
}

// Page is one page of a range scan.
type Page[T any] struct {
	Rows  []RowResult[T] `json:"rows"`
	Token Token          `json:"token"`
}

// EndToken is the token of a scan with nothing left to read.
func EndToken(endExclusive []byte) Token {
	return Token{NextStart: nilIfEmpty(endExclusive), HasMore: false}
}

// TokenAfter computes the token for a page whose furthest row in the scan direction is lastRow.
func TokenAfter(reverse bool, lastRow, endExclusive []byte) Token {
	if len(lastRow) == 0 || IsTerminalRow(reverse, lastRow) {
		return EndToken(endExclusive)
	}

	next := NextStartRow(reverse, lastRow)
	if next == nil {
		return EndToken(endExclusive)
	}
	if len(endExclusive) > 0 && Compare(next, endExclusive) == 0 {
		return EndToken(endExclusive)
	}
	return Token{NextStart: next, HasMore: true}
}

// EmptyPage is a page with no rows and no more data.
func EmptyPage[T any](endExclusive []byte) *Page[T] {
	return &Page[T]{Token: EndToken(endExclusive)}
}

// IsEnd reports whether the page is the final page of its scan.
func (p *Page[T]) IsEnd() bool {
	return p == nil || !p.Token.HasMore
}
