package grpc

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"time"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/rs/zerolog/log"
	grpc2 "google.golang.org/grpc"
)

//go:generate mockgen -destination=grpc_mock.go -package=grpc -source=grpc.go

type operations interface {
	GetFirstBatchForRanges(ctx context.Context, table string, requests []litetable.RangeRequest,
		ts uint64) ([]*litetable.Page[litetable.Value], error)
	GetFirstBatchForTables(ctx context.Context, requests map[string][]litetable.RangeRequest,
		ts uint64) (map[string][]*litetable.Page[litetable.Value], error)
	GetRange(ctx context.Context, table string, req litetable.RangeRequest,
		ts uint64) iter.Seq2[litetable.RowResult[litetable.Value], error]
	GetRows(ctx context.Context, table string, rows [][]byte, sel litetable.ColumnSelection,
		ts uint64) ([]litetable.RowResult[litetable.Value], error)
	GetLatestTimestamps(ctx context.Context, table string, rows [][]byte,
		sel litetable.ColumnSelection, ts uint64) ([]litetable.RowResult[uint64], error)
	Put(ctx context.Context, table string, cells []litetable.CellValue, ts uint64) (uint64, error)
	CreateTable(ctx context.Context, table string) error
	Sweep(ctx context.Context, table string, before uint64) error
}

type grpcServer interface {
	Serve(lis net.Listener) error
	GracefulStop()
}

// Server implements the app.Dependency interface for a gRPC server
type Server struct {
	address  string
	server   grpcServer
	port     int
	listener net.Listener
}

type Config struct {
	Address    string
	Port       int
	Operations operations
	// Listener replaces the TCP listener on Address and Port when set.
	Listener net.Listener
	Options  []grpc2.ServerOption
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Listener == nil {
		if c.Address == "" {
			errGrp = append(errGrp, fmt.Errorf("address required"))
		}
		if c.Port == 0 {
			errGrp = append(errGrp, fmt.Errorf("port required"))
		}
	}
	if c.Operations == nil {
		errGrp = append(errGrp, fmt.Errorf("operations required"))
	}

	return errors.Join(errGrp...)
}

// NewServer creates a new gRPC server instance
func NewServer(cfg *Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	srv := grpc2.NewServer(cfg.Options...)
	RegisterKeyValueServer(srv, &kvs{
		operations: cfg.Operations,
	})

	lis := cfg.Listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Address, cfg.Port))
		if err != nil {
			return nil, fmt.Errorf("failed to create listener on port %d: %w", cfg.Port, err)
		}
	}

	return &Server{
		address:  cfg.Address,
		server:   srv,
		port:     cfg.Port,
		listener: lis,
	}, nil
}

func (s *Server) Start() error {
	log.Info().Msgf("gRPC server listening at %s", s.listener.Addr())

	errCh := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		if err := s.server.Serve(s.listener); err != nil {
			errCh <- err
			log.Error().Err(err).Msg("gRPC server failed")
			return
		}
		errCh <- nil
	}()

	// Block briefly for error or nil return
	select {
	case err := <-errCh:
		return err
	case <-time.After(500 * time.Millisecond):
		// Assume server started successfully
		return nil
	}
}

func (s *Server) Stop() error {
	log.Info().Msg("Stopping gRPC server")
	s.server.GracefulStop()
	return nil
}

func (s *Server) Name() string {
	return "gRPC Server"
}
