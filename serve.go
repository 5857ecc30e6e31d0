package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/litetable/litetable-kvs/internal/app"
	"github.com/litetable/litetable-kvs/internal/backend"
	"github.com/litetable/litetable-kvs/internal/backend/badgerstore"
	"github.com/litetable/litetable-kvs/internal/backend/ldb"
	"github.com/litetable/litetable-kvs/internal/backend/memstore"
	"github.com/litetable/litetable-kvs/internal/backend/sqlstore"
	"github.com/litetable/litetable-kvs/internal/config"
	"github.com/litetable/litetable-kvs/internal/metrics"
	"github.com/litetable/litetable-kvs/internal/operations"
	"github.com/litetable/litetable-kvs/internal/ranges"
	"github.com/litetable/litetable-kvs/internal/reaper"
	"github.com/litetable/litetable-kvs/internal/server"
	"github.com/litetable/litetable-kvs/internal/server/grpc"
	"github.com/litetable/litetable-kvs/internal/wal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const stopTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the key-value server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(configPath)
			if err != nil {
				return err
			}
			application, err := initialize(cfg)
			if err != nil {
				return err
			}
			return application.Run(context.Background())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"config file (default $HOME/.litetable/litetable.conf)")
	return cmd
}

// initialize builds the dependencies in start order: the store first, the servers last.
func initialize(cfg *config.Config) (*app.App, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// the sweep log lives in the data directory whatever the backend
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	var deps []app.Dependency

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	deps = append(deps, store)

	var metricsAddress string
	if cfg.MetricsPort > 0 {
		metricsAddress = cfg.ServerAddress
	}
	recorder, err := metrics.New(&metrics.Config{
		Address: metricsAddress,
		Port:    cfg.MetricsPort,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, recorder)

	scanner, err := ranges.New(&ranges.Config{Sessions: store})
	if err != nil {
		return nil, err
	}

	// create a new Reaper, sweeping shadowed versions of the configured tables
	sweeper, err := reaper.New(&reaper.Config{
		Path:     cfg.DataDir,
		Scanner:  scanner,
		Store:    store,
		Metrics:  recorder,
		Tables:   cfg.Tables,
		Interval: cfg.SweepInterval,
		Retain:   cfg.SweepRetain,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, sweeper)

	// Operations is the package clients talk to: it validates requests and records metrics.
	opsManager, err := operations.New(&operations.Config{
		Store:              store,
		Scanner:            scanner,
		Metrics:            recorder,
		Sweeper:            sweeper,
		DefaultBatchHint:   cfg.DefaultBatchHint,
		MaxParallelTables:  cfg.MaxParallelTables,
		VerboseCellLogging: cfg.VerboseCellLogging,
	})
	if err != nil {
		return nil, err
	}

	srv, err := grpc.NewServer(&grpc.Config{
		Address:    cfg.ServerAddress,
		Port:       cfg.ServerPort,
		Operations: opsManager,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, srv)

	if cfg.QueryPort > 0 {
		querySrv, err := newQueryServer(cfg, opsManager)
		if err != nil {
			return nil, err
		}
		deps = append(deps, querySrv)
	}

	return app.CreateApp(&app.Config{
		ServiceName: "LiteTable KVS",
		StopTimeout: stopTimeout,
	}, deps...)
}

// newQueryServer serves the text protocol, over TLS when a key pair is configured.
func newQueryServer(cfg *config.Config, ops *operations.Manager) (*server.Server, error) {
	handler, err := server.NewHandler(&server.HandlerConfig{Queries: ops})
	if err != nil {
		return nil, err
	}

	var cert *tls.Certificate
	if cfg.TLSCertFile != "" {
		pair, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		cert = &pair
	}

	return server.New(&server.Config{
		Address:     cfg.ServerAddress,
		Port:        cfg.QueryPort,
		Handler:     handler,
		Certificate: cert,
	})
}

func newStore(cfg *config.Config) (backend.Store, error) {
	switch cfg.Backend {
	case config.BackendLevelDB:
		store, err := ldb.New(&ldb.Config{
			Path:   filepath.Join(cfg.DataDir, "leveldb"),
			Tables: cfg.Tables,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendBadger:
		store, err := badgerstore.New(&badgerstore.Config{
			Path:   filepath.Join(cfg.DataDir, "badger"),
			Tables: cfg.Tables,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendSQL:
		store, err := sqlstore.New(&sqlstore.Config{
			Driver: cfg.SQLDriver,
			DSN:    cfg.SQLDSN,
			Tables: cfg.Tables,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		// the memory store survives restarts through its WAL
		walManager, err := wal.New(&wal.Config{
			Path: cfg.DataDir,
		})
		if err != nil {
			return nil, err
		}
		store, err := memstore.New(&memstore.Config{
			WAL:    walManager,
			Tables: cfg.Tables,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
