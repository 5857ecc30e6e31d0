// Package operations is the service layer over the scan engine: it resolves tables and
// timestamps, applies defaults, traces and measures every call.
package operations

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/reaper"
	"github.com/litetable/litetable-kvs/internal/trace"
)

// LatestTimestamp reads every version stored below the largest timestamp. A read timestamp
// of 0 means the same.
const LatestTimestamp = math.MaxUint64

const defaultMaxParallelTables = 8

type scanner interface {
	GetFirstBatchForRanges(ctx context.Context, table string, requests []litetable.RangeRequest,
		ts uint64, tc *trace.Context) ([]*litetable.Page[litetable.Value], error)
	GetRangePage(ctx context.Context, table string, req litetable.RangeRequest, ts uint64,
		tc *trace.Context) (*litetable.Page[litetable.Value], error)
	GetRows(ctx context.Context, table string, rows [][]byte, sel litetable.ColumnSelection,
		ts uint64, tc *trace.Context) ([]litetable.RowResult[litetable.Value], error)
	GetLatestTimestamps(ctx context.Context, table string, rows [][]byte,
		sel litetable.ColumnSelection, ts uint64,
		tc *trace.Context) ([]litetable.RowResult[uint64], error)
}

type store interface {
	backend.Schema
	CreateTable(ctx context.Context, table string) error
	Put(ctx context.Context, table string, cells []litetable.CellValue, ts uint64) error
}

type recorder interface {
	Observe(op string, start time.Time, rows int, err error)
}

type sweeper interface {
	Reap(ctx context.Context, p *reaper.ReapParams) error
}

type Manager struct {
	store              store
	scanner            scanner
	metrics            recorder
	sweeper            sweeper
	defaultBatchHint   int
	maxParallelTables  int
	verboseCellLogging bool
	now                func() time.Time
}

type Config struct {
	Store   store
	Scanner scanner
	// Metrics is optional.
	Metrics recorder
	// Sweeper runs sweep requests. Without it Sweep is rejected.
	Sweeper sweeper
	// DefaultBatchHint applies to requests that carry no hint of their own.
	DefaultBatchHint int
	// MaxParallelTables bounds the tables GetFirstBatchForTables reads at once.
	MaxParallelTables  int
	VerboseCellLogging bool
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Store == nil {
		errGrp = append(errGrp, errors.New("store cannot be nil"))
	}
	if c.Scanner == nil {
		errGrp = append(errGrp, errors.New("scanner cannot be nil"))
	}
	if c.DefaultBatchHint < 0 {
		errGrp = append(errGrp, errors.New("default batch hint cannot be negative"))
	}
	if c.MaxParallelTables < 0 {
		errGrp = append(errGrp, errors.New("max parallel tables cannot be negative"))
	}
	return errors.Join(errGrp...)
}

// New creates a new operations manager
func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		store:              cfg.Store,
		scanner:            cfg.Scanner,
		metrics:            cfg.Metrics,
		sweeper:            cfg.Sweeper,
		defaultBatchHint:   cfg.DefaultBatchHint,
		maxParallelTables:  cfg.MaxParallelTables,
		verboseCellLogging: cfg.VerboseCellLogging,
		now:                time.Now,
	}
	if m.metrics == nil {
		m.metrics = noopRecorder{}
	}
	if m.maxParallelTables == 0 {
		m.maxParallelTables = defaultMaxParallelTables
	}
	return m, nil
}

type noopRecorder struct{}

func (noopRecorder) Observe(string, time.Time, int, error) {}

func (m *Manager) trace() *trace.Context {
	return trace.New(m.verboseCellLogging)
}

// checkTable rejects malformed and unknown tables before a session is taken.
func (m *Manager) checkTable(table string) error {
	if err := backend.ValidateTableName(table); err != nil {
		return err
	}
	if !m.store.TableExists(table) {
		return backend.ErrTableNotFound(table)
	}
	return nil
}

// readTimestamp resolves the read timestamp of a call; 0 reads the latest data.
func readTimestamp(ts uint64) uint64 {
	if ts == 0 {
		return LatestTimestamp
	}
	return ts
}

// snapshotTimestamp reads everything written up to now with a clock timestamp, the way Put
// stamps writes without one.
func (m *Manager) snapshotTimestamp() uint64 {
	return uint64(m.now().UnixMicro()) + 1
}

func (m *Manager) withDefaults(req litetable.RangeRequest) litetable.RangeRequest {
	if req.BatchHint() == 0 && m.defaultBatchHint > 0 {
		return req.WithBatchHint(m.defaultBatchHint)
	}
	return req
}
