// Package backend defines what the scan engine needs from a storage technology.
package backend

import (
	"context"

	"github.com/litetable/litetable-kvs/internal/extract"
	"github.com/litetable/litetable-kvs/internal/litetable"
)

//go:generate mockgen -destination=backend_mock.go -package=backend -source=backend.go

// Session is one exclusively owned connection to a backend.
type Session interface {
	// SetAutoCommit switches auto-commit and returns the previous setting. Turning it off pins
	// one consistent snapshot until it is turned back on.
	SetAutoCommit(ctx context.Context, on bool) (previous bool, err error)
	// DispatchCandidateRows selects, for every query, up to Limit distinct row keys inside the
	// query's bounds that hold a version below readTs, walking in the query's direction. All
	// queries are answered in one round trip.
	DispatchCandidateRows(ctx context.Context, table string, queries []SubQuery,
		readTs uint64) (*CandidateRows, error)
	// FetchCells returns the raw versions of rows. Versions at or above readTs may be omitted.
	FetchCells(ctx context.Context, table string, rows [][]byte, sel litetable.ColumnSelection,
		readTs uint64) ([]extract.RawRow, error)
	// Decoder decodes the raw columns FetchCells returns.
	Decoder() extract.DecodeFunc
}

// SessionProvider hands out sessions. Every acquired session must be released exactly once.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
	Release(s Session) error
}

// Schema answers metadata questions. The engine trusts its answers.
type Schema interface {
	TableExists(table string) bool
}
