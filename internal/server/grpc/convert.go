package grpc

import (
	"github.com/litetable/litetable-kvs/internal/litetable"
)

// Range is one range request on the wire.
type Range struct {
	Start     []byte   `json:"start,omitempty"`
	End       []byte   `json:"end,omitempty"`
	Reverse   bool     `json:"reverse,omitempty"`
	Columns   [][]byte `json:"columns,omitempty"`
	BatchHint int      `json:"batch_hint,omitempty"`
}

type GetRangesRequest struct {
	Table     string  `json:"table"`
	Ranges    []Range `json:"ranges"`
	Timestamp uint64  `json:"timestamp,omitempty"`
}

// GetRangesResponse holds one page per requested range, in request order.
type GetRangesResponse struct {
	Pages []*litetable.Page[litetable.Value] `json:"pages"`
}

type GetRowsRequest struct {
	Table     string   `json:"table"`
	Rows      [][]byte `json:"rows"`
	Columns   [][]byte `json:"columns,omitempty"`
	Timestamp uint64   `json:"timestamp,omitempty"`
}

type GetRowsResponse struct {
	Rows []litetable.RowResult[litetable.Value] `json:"rows"`
}

type PutRequest struct {
	Table     string                `json:"table"`
	Cells     []litetable.CellValue `json:"cells"`
	Timestamp uint64                `json:"timestamp,omitempty"`
}

// PutResponse returns the timestamp the cells were written at.
type PutResponse struct {
	Timestamp uint64 `json:"timestamp"`
}

// GetTableRangesRequest reads the first page of ranges in several tables at one timestamp.
type GetTableRangesRequest struct {
	Tables    map[string][]Range `json:"tables"`
	Timestamp uint64             `json:"timestamp,omitempty"`
}

// GetTableRangesResponse holds, per table, one page per requested range in request order.
type GetTableRangesResponse struct {
	Tables map[string][]*litetable.Page[litetable.Value] `json:"tables"`
}

// ScanRangeRequest streams every row of one range.
type ScanRangeRequest struct {
	Table     string `json:"table"`
	Range     Range  `json:"range"`
	Timestamp uint64 `json:"timestamp,omitempty"`
}

type ScanRangeResponse struct {
	Row litetable.RowResult[litetable.Value] `json:"row"`
}

type GetTimestampsRequest struct {
	Table     string   `json:"table"`
	Rows      [][]byte `json:"rows"`
	Columns   [][]byte `json:"columns,omitempty"`
	Timestamp uint64   `json:"timestamp,omitempty"`
}

// GetTimestampsResponse holds, per cell, the timestamp of its visible version.
type GetTimestampsResponse struct {
	Rows []litetable.RowResult[uint64] `json:"rows"`
}

type SweepRequest struct {
	Table  string `json:"table"`
	Before uint64 `json:"before"`
}

type SweepResponse struct{}

type CreateTableRequest struct {
	Table string `json:"table"`
}

type CreateTableResponse struct{}

// NewRange converts a range request to its wire form.
func NewRange(req litetable.RangeRequest) Range {
	return Range{
		Start:     req.StartInclusive(),
		End:       req.EndExclusive(),
		Reverse:   req.IsReverse(),
		Columns:   req.ColumnSelection().Columns(),
		BatchHint: req.BatchHint(),
	}
}

func (r Range) toRangeRequest() (litetable.RangeRequest, error) {
	opts := []litetable.RangeOption{
		litetable.WithStart(r.Start),
		litetable.WithEnd(r.End),
		litetable.WithReverse(r.Reverse),
		litetable.WithBatchHint(r.BatchHint),
	}
	if len(r.Columns) > 0 {
		opts = append(opts, litetable.WithColumns(r.Columns...))
	}
	return litetable.NewRangeRequest(opts...)
}

func toRangeRequests(ranges []Range) ([]litetable.RangeRequest, error) {
	out := make([]litetable.RangeRequest, 0, len(ranges))
	for _, r := range ranges {
		req, err := r.toRangeRequest()
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func columnSelection(cols [][]byte) litetable.ColumnSelection {
	if len(cols) == 0 {
		return litetable.AllColumns()
	}
	return litetable.SelectColumns(cols...)
}
