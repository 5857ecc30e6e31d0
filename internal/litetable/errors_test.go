package litetable

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	err := Errorf(ErrInvalidRequest, "bad hint %d", -1)
	req.Equal("invalid range request: bad hint -1", err.Error())
	req.True(errors.Is(err, ErrInvalidRequest))

	cause := errors.New("disk on fire")
	wrapped := Wrap(ErrBackendIO, cause, "reading %s", "t")
	req.Equal("backend io failure: reading t: disk on fire", wrapped.Error())
	req.True(errors.Is(wrapped, cause))
	req.True(IsRetryable(wrapped))
	req.False(IsFault(wrapped))

	req.Nil(Wrap(ErrBackendIO, nil, "nothing"))
}

func TestWrapIO(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		cause     error
		retryable bool
		fault     bool
		same      bool
	}{
		"plain error becomes io": {
			cause:     errors.New("timeout"),
			retryable: true,
		},
		"fault is kept": {
			cause: Errorf(ErrDecode, "bad column"),
			fault: true,
			same:  true,
		},
		"caller error is kept": {
			cause: Errorf(ErrTableNotFound, "t"),
			same:  true,
		},
		"wrapped classification is kept": {
			cause: fmt.Errorf("adapter: %w", Errorf(ErrBoundsViolation, "row")),
			fault: true,
			same:  true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			got := WrapIO(tc.cause, "dispatch")
			req.Equal(tc.retryable, IsRetryable(got))
			req.Equal(tc.fault, IsFault(got))
			if tc.same {
				req.Equal(tc.cause, got)
			}
		})
	}
	require.Nil(t, WrapIO(nil, "nothing"))
}
