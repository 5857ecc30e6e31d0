package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (k *kvs) validateGetRanges(msg *GetRangesRequest) error {
	var errGrp []error
	if msg.Table == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "table required"))
	}
	if len(msg.Ranges) == 0 {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "ranges required"))
	}
	return errors.Join(errGrp...)
}

func (k *kvs) GetRanges(ctx context.Context, msg *GetRangesRequest) (*GetRangesResponse, error) {
	now := time.Now()
	if err := k.validateGetRanges(msg); err != nil {
		return nil, err
	}

	requests, err := toRangeRequests(msg.Ranges)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid range: %v", err)
	}

	pages, err := k.operations.GetFirstBatchForRanges(ctx, msg.Table, requests, msg.Timestamp)
	if err != nil {
		return nil, statusError("read ranges", err)
	}

	log.Debug().Str("table", msg.Table).Int("ranges", len(requests)).
		Msgf("GetRanges latency: %v", time.Since(now))
	return &GetRangesResponse{Pages: pages}, nil
}

func (k *kvs) validateGetRows(msg *GetRowsRequest) error {
	var errGrp []error
	if msg.Table == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "table required"))
	}
	if len(msg.Rows) == 0 {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "rows required"))
	}
	return errors.Join(errGrp...)
}

func (k *kvs) GetRows(ctx context.Context, msg *GetRowsRequest) (*GetRowsResponse, error) {
	now := time.Now()
	if err := k.validateGetRows(msg); err != nil {
		return nil, err
	}

	rows, err := k.operations.GetRows(ctx, msg.Table, msg.Rows, columnSelection(msg.Columns),
		msg.Timestamp)
	if err != nil {
		return nil, statusError("read rows", err)
	}

	log.Debug().Str("table", msg.Table).Msgf("GetRows latency: %v", time.Since(now))
	return &GetRowsResponse{Rows: rows}, nil
}

func (k *kvs) validateGetTableRanges(msg *GetTableRangesRequest) error {
	if len(msg.Tables) == 0 {
		return status.Errorf(codes.InvalidArgument, "tables required")
	}
	var errGrp []error
	for table, ranges := range msg.Tables {
		if table == "" {
			errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "table required"))
		}
		if len(ranges) == 0 {
			errGrp = append(errGrp, status.Errorf(codes.InvalidArgument,
				"ranges required for table %s", table))
		}
	}
	return errors.Join(errGrp...)
}

func (k *kvs) GetTableRanges(ctx context.Context, msg *GetTableRangesRequest) (
	*GetTableRangesResponse, error) {
	now := time.Now()
	if err := k.validateGetTableRanges(msg); err != nil {
		return nil, err
	}

	requests := make(map[string][]litetable.RangeRequest, len(msg.Tables))
	for table, ranges := range msg.Tables {
		reqs, err := toRangeRequests(ranges)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid range for table %s: %v",
				table, err)
		}
		requests[table] = reqs
	}

	tables, err := k.operations.GetFirstBatchForTables(ctx, requests, msg.Timestamp)
	if err != nil {
		return nil, statusError("read table ranges", err)
	}

	log.Debug().Int("tables", len(requests)).
		Msgf("GetTableRanges latency: %v", time.Since(now))
	return &GetTableRangesResponse{Tables: tables}, nil
}

// ScanRange streams the rows of one range page by page, every page read at the same
// timestamp.
func (k *kvs) ScanRange(msg *ScanRangeRequest, stream KeyValueService_ScanRangeServer) error {
	now := time.Now()
	if msg.Table == "" {
		return status.Errorf(codes.InvalidArgument, "table required")
	}
	req, err := msg.Range.toRangeRequest()
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid range: %v", err)
	}

	sent := 0
	for row, err := range k.operations.GetRange(stream.Context(), msg.Table, req, msg.Timestamp) {
		if err != nil {
			return statusError("scan range", err)
		}
		if err := stream.Send(&ScanRangeResponse{Row: row}); err != nil {
			return err
		}
		sent++
	}

	log.Debug().Str("table", msg.Table).Int("rows", sent).
		Msgf("ScanRange latency: %v", time.Since(now))
	return nil
}

func (k *kvs) GetTimestamps(ctx context.Context, msg *GetTimestampsRequest) (
	*GetTimestampsResponse, error) {
	now := time.Now()
	if err := k.validateGetRows(&GetRowsRequest{Table: msg.Table, Rows: msg.Rows}); err != nil {
		return nil, err
	}

	rows, err := k.operations.GetLatestTimestamps(ctx, msg.Table, msg.Rows,
		columnSelection(msg.Columns), msg.Timestamp)
	if err != nil {
		return nil, statusError("read timestamps", err)
	}

	log.Debug().Str("table", msg.Table).Msgf("GetTimestamps latency: %v", time.Since(now))
	return &GetTimestampsResponse{Rows: rows}, nil
}
