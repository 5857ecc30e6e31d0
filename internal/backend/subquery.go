package backend

import (
	"github.com/litetable/litetable-kvs/internal/litetable"
)

// SubQuery is the candidate-row selection derived from one range request.
type SubQuery struct {
	BatchIndex int
	// Start is inclusive and never empty.
	Start []byte
	// End is exclusive; nil means unbounded.
	End     []byte
	Reverse bool
	Limit   int
}

// EffectiveSubQuery derives the sub-query for request i. An open start becomes the terminal row
// of the opposite end so unbounded and bounded scans run the same query. A missing batch hint
// selects one row.
func EffectiveSubQuery(i int, req litetable.RangeRequest) SubQuery {
	start := req.StartInclusive()
	if len(start) == 0 {
		if req.IsReverse() {
			start = litetable.LastRowName()
		} else {
			start = litetable.FirstRowName()
		}
	}
	limit := req.BatchHint()
	if limit <= 0 {
		limit = 1
	}
	return SubQuery{
		BatchIndex: i,
		Start:      start,
		End:        req.EndExclusive(),
		Reverse:    req.IsReverse(),
		Limit:      limit,
	}
}

// Contains reports whether row is inside [Start, End), or (End, Start] when reversed.
func (q SubQuery) Contains(row []byte) bool {
	if q.Reverse {
		if litetable.Compare(row, q.Start) > 0 {
			return false
		}
		return len(q.End) == 0 || litetable.Compare(row, q.End) > 0
	}
	if litetable.Compare(row, q.Start) < 0 {
		return false
	}
	return len(q.End) == 0 || litetable.Compare(row, q.End) < 0
}
