// Package trace carries per-call observability options through the engine.
package trace

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Context is passed explicitly down a read call.
type Context struct {
	ID uuid.UUID
	// VerboseCellLogging logs every raw tuple the extractor sees.
	VerboseCellLogging bool
	Logger             zerolog.Logger
}

// New returns a Context with a fresh id, logging through the global logger.
func New(verbose bool) *Context {
	id := uuid.New()
	return &Context{
		ID:                 id,
		VerboseCellLogging: verbose,
		Logger:             log.With().Str("trace_id", id.String()).Logger(),
	}
}

// Disabled returns a Context that logs nothing.
func Disabled() *Context {
	return &Context{Logger: zerolog.Nop()}
}

// OrDisabled lets callers pass a nil *Context.
func OrDisabled(tc *Context) *Context {
	if tc == nil {
		return Disabled()
	}
	return tc
}

// Verbose reports whether per-cell logging is on.
func (c *Context) Verbose() bool {
	return c != nil && c.VerboseCellLogging
}

// Log returns the logger for this call.
func (c *Context) Log() *zerolog.Logger {
	if c == nil {
		l := zerolog.Nop()
		return &l
	}
	return &c.Logger
}
