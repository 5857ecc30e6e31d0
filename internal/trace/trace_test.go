package trace

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	var nilCtx *Context
	req.False(nilCtx.Verbose())
	req.NotNil(nilCtx.Log())
	req.NotNil(OrDisabled(nil))

	tc := New(true)
	req.True(tc.Verbose())
	req.NotEqual(uuid.Nil, tc.ID)

	var buf bytes.Buffer
	tc.Logger = zerolog.New(&buf).With().Str("trace_id", tc.ID.String()).Logger()
	tc.Log().Info().Msg("hello")
	req.Contains(buf.String(), tc.ID.String())
}
