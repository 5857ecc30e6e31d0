// Package ranges runs many range requests against one table with a fixed number of backend
// round trips and splits the combined result back into one page per request.
package ranges

import (
	"context"
	"errors"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
)

type Config struct {
	Sessions backend.SessionProvider
}

func (c *Config) validate() error {
	var errs []error
	if c.Sessions == nil {
		errs = append(errs, errors.New("session provider is required"))
	}
	return errors.Join(errs...)
}

// Scanner is stateless between calls; every call owns the session it acquires.
type Scanner struct {
	sessions backend.SessionProvider
}

func New(cfg *Config) (*Scanner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Scanner{
		sessions: cfg.Sessions,
	}, nil
}

// withSession acquires a session, pins a snapshot for the duration of fn and puts the session
// back the way it found it. The session is released exactly once, even if fn panics.
func (s *Scanner) withSession(ctx context.Context, tc *trace.Context,
	fn func(sess backend.Session) error) (err error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return litetable.WrapIO(err, "failed to acquire session")
	}
	defer func() {
		if relErr := s.sessions.Release(sess); relErr != nil {
			tc.Log().Error().Err(relErr).Msg("failed to release session")
		}
	}()

	previous, err := sess.SetAutoCommit(ctx, false)
	if err != nil {
		return litetable.WrapIO(err, "failed to disable auto-commit")
	}
	defer func() {
		// the caller's context may already be done; the session still has to be restored
		if _, rErr := sess.SetAutoCommit(context.WithoutCancel(ctx), previous); rErr != nil {
			tc.Log().Error().Err(rErr).Bool("auto_commit", previous).
				Msg("failed to restore auto-commit")
		}
	}()

	return fn(sess)
}
