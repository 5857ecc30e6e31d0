package operations

import (
	"errors"

	"github.com/litetable/litetable-kvs/internal/litetable"
)

var (
	errInvalidFormat    = errors.New("invalid format")
	errUnknownParameter = errors.New("unknown parameter")
	errMissingTable     = errors.New("missing table")
)

// newError classifies a query parsing failure as an invalid request, keeping err for
// errors.Is.
func newError(err error, format string, args ...interface{}) error {
	return litetable.Wrap(litetable.ErrInvalidRequest, err, format, args...)
}
