package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (k *kvs) validateSweep(msg *SweepRequest) error {
	var errGrp []error
	if msg.Table == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "table required"))
	}
	if msg.Before == 0 {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "before required"))
	}
	return errors.Join(errGrp...)
}

// Sweep queues the removal of shadowed versions. It returns once the request is recorded.
func (k *kvs) Sweep(ctx context.Context, msg *SweepRequest) (*SweepResponse, error) {
	start := time.Now()
	if err := k.validateSweep(msg); err != nil {
		return nil, err
	}

	if err := k.operations.Sweep(ctx, msg.Table, msg.Before); err != nil {
		return nil, statusError("queue sweep", err)
	}
	log.Debug().Str("table", msg.Table).Msgf("Sweep queued: %v", time.Since(start))
	return &SweepResponse{}, nil
}
