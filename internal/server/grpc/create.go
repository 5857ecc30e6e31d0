package grpc

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (k *kvs) CreateTable(ctx context.Context, msg *CreateTableRequest) (*CreateTableResponse,
	error) {
	start := time.Now()
	if msg.Table == "" {
		return nil, status.Errorf(codes.InvalidArgument, "table required")
	}

	if err := k.operations.CreateTable(ctx, msg.Table); err != nil {
		return nil, statusError("create table", err)
	}
	log.Debug().Msgf("CreateTable successful: %v", time.Since(start))
	return &CreateTableResponse{}, nil
}
