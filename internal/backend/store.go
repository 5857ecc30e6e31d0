package backend

import (
	"context"
	"regexp"

	"github.com/litetable/litetable-kvs/internal/litetable"
)

// Version addresses one stored version of a cell.
type Version struct {
	Row       []byte
	Column    []byte
	Timestamp uint64
}

// Store is a complete backend: sessions for the read path plus the write path used to load data
// and to sweep shadowed versions. Start, Stop and Name make a Store an app dependency.
type Store interface {
	SessionProvider
	Schema

	CreateTable(ctx context.Context, table string) error
	Put(ctx context.Context, table string, cells []litetable.CellValue, ts uint64) error
	DeleteVersions(ctx context.Context, table string, versions []Version) error

	Start() error
	Stop() error
	Name() string
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// ValidateTableName checks a table name is safe to use in keys, paths and statements.
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return litetable.Errorf(litetable.ErrInvalidRequest,
			"table name %q must be 1-64 characters of [A-Za-z0-9_]", table)
	}
	return nil
}

// ValidatePut checks the arguments every Store.Put implementation accepts.
func ValidatePut(cells []litetable.CellValue, ts uint64) error {
	if ts == 0 {
		return litetable.Errorf(litetable.ErrInvalidTimestamp, "write timestamp must be positive")
	}
	for _, c := range cells {
		if err := litetable.ValidateName(c.Row); err != nil {
			return err
		}
		if err := litetable.ValidateName(c.Column); err != nil {
			return err
		}
	}
	return nil
}

// ErrTableNotFound builds the error every Store returns for an unknown table.
func ErrTableNotFound(table string) error {
	return litetable.Errorf(litetable.ErrTableNotFound, "table %q", table)
}
