// Package reaper sweeps shadowed versions. A version is shadowed once a newer version of the
// same cell exists below the sweep timestamp; reads at or after that timestamp never see it.
package reaper

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/trace"
	"github.com/rs/zerolog/log"
)

const (
	reaperFile       = ".reaper.sweep.log"
	defaultBatchSize = 256
)

type versionScanner interface {
	GetVersions(ctx context.Context, table string, req litetable.RangeRequest, ts uint64,
		tc *trace.Context) (*litetable.Page[[]uint64], error)
}

type versionStore interface {
	backend.Schema
	DeleteVersions(ctx context.Context, table string, versions []backend.Version) error
}

type recorder interface {
	Swept(n int)
}

type Reaper struct {
	filePath  string
	collector chan ReapParams
	scanner   versionScanner
	store     versionStore
	metrics   recorder

	tables    []string
	batchSize int
	retain    time.Duration

	mutex        sync.Mutex
	pending      []ReapParams
	reapInterval time.Duration
	now          func() time.Time

	procCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

type Config struct {
	// Path is the directory pending sweep requests are kept in. Empty keeps them in memory.
	Path    string
	Scanner versionScanner
	Store   versionStore
	// Metrics is optional.
	Metrics recorder
	// Tables are swept on every interval.
	Tables []string
	// Interval between periodic sweeps.
	Interval time.Duration
	// Retain is how far back from now versions stay readable.
	Retain    time.Duration
	BatchSize int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Scanner == nil {
		errGrp = append(errGrp, errors.New("scanner cannot be nil"))
	}
	if c.Store == nil {
		errGrp = append(errGrp, errors.New("store cannot be nil"))
	}
	if c.Interval <= 0 {
		errGrp = append(errGrp, errors.New("interval must be greater than 0"))
	}
	if c.Retain < 0 {
		errGrp = append(errGrp, errors.New("retain cannot be negative"))
	}
	if c.BatchSize < 0 {
		errGrp = append(errGrp, errors.New("batch size cannot be negative"))
	}
	return errors.Join(errGrp...)
}

// New creates a new Reaper.
func New(cfg *Config) (*Reaper, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var filePath string
	if cfg.Path != "" {
		filePath = filepath.Join(cfg.Path, reaperFile)
	}
	batch := cfg.BatchSize
	if batch == 0 {
		batch = defaultBatchSize
	}
	// create a cancel context to ensure all sweeps are shut down gracefully
	ctx, cancel := context.WithCancel(context.Background())

	r := &Reaper{
		filePath:     filePath,
		collector:    make(chan ReapParams, 1024),
		scanner:      cfg.Scanner,
		store:        cfg.Store,
		metrics:      cfg.Metrics,
		tables:       cfg.Tables,
		batchSize:    batch,
		retain:       cfg.Retain,
		reapInterval: cfg.Interval,
		now:          time.Now,
		procCtx:      ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	if r.metrics == nil {
		r.metrics = noopRecorder{}
	}
	return r, nil
}

type noopRecorder struct{}

func (noopRecorder) Swept(int) {}

func (r *Reaper) Start() error {
	pending, err := r.loadPending()
	if err != nil {
		return err
	}
	r.pending = pending

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.reapInterval)
		defer ticker.Stop()

		r.drainPending()
		for {
			select {
			case <-r.procCtx.Done():
				return
			case p := <-r.collector:
				r.record(p)
				r.drainPending()
			case <-ticker.C:
				r.sweepConfigured()
				r.drainPending()
			}
		}
	}()
	return nil
}

func (r *Reaper) Stop() error {
	// kill the process context
	if r.cancel != nil {
		r.cancel()
	}

	// Wait for the reaper to finish
	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		return errors.New("reaper did not stop in time")
	}
	return nil
}

func (r *Reaper) Name() string {
	return "Reaper"
}

// sweepTimestamp is the timestamp below which shadowed versions are removed.
func (r *Reaper) sweepTimestamp() uint64 {
	ts := r.now().Add(-r.retain).UnixMicro()
	if ts <= 0 {
		return 0
	}
	return uint64(ts)
}

func (r *Reaper) sweepConfigured() {
	before := r.sweepTimestamp()
	for _, table := range r.tables {
		if _, err := r.Sweep(r.procCtx, table, before); err != nil {
			log.Error().Err(err).Str("table", table).Msg("sweep failed")
		}
	}
}
