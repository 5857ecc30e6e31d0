package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (k *kvs) validatePut(msg *PutRequest) error {
	var errGrp []error
	if msg.Table == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "table required"))
	}
	if len(msg.Cells) == 0 {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "cells required"))
	}
	return errors.Join(errGrp...)
}

func (k *kvs) Put(ctx context.Context, msg *PutRequest) (*PutResponse, error) {
	if err := k.validatePut(msg); err != nil {
		return nil, err
	}
	now := time.Now()

	ts, err := k.operations.Put(ctx, msg.Table, msg.Cells, msg.Timestamp)
	if err != nil {
		return nil, statusError("write cells", err)
	}

	log.Debug().Str("table", msg.Table).Int("cells", len(msg.Cells)).
		Msgf("Put latency: %v", time.Since(now))
	return &PutResponse{Timestamp: ts}, nil
}
