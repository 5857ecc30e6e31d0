package grpc

import (
	"context"
	"errors"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/reaper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// kvs serves the KeyValueService from the operations manager.
type kvs struct {
	operations operations
}

// statusError maps engine errors to status codes. Faults are reported as Internal so clients
// never retry them.
func statusError(action string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, litetable.ErrTableNotFound):
		code = codes.NotFound
	case errors.Is(err, litetable.ErrInvalidName),
		errors.Is(err, litetable.ErrInvalidRequest),
		errors.Is(err, litetable.ErrInvalidTimestamp):
		code = codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case litetable.IsRetryable(err), errors.Is(err, reaper.ErrStopped):
		code = codes.Unavailable
	}
	return status.Errorf(code, "failed to %s: %v", action, err)
}
