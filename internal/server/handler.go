package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/operations"
	"github.com/litetable/litetable-kvs/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxBufferSize = 4096
	defaultTimeout       = 30 * time.Second
)

type queries interface {
	GetRangePage(ctx context.Context, table string, req litetable.RangeRequest,
		ts uint64) (*litetable.Page[litetable.Value], error)
	GetRows(ctx context.Context, table string, rows [][]byte, sel litetable.ColumnSelection,
		ts uint64) ([]litetable.RowResult[litetable.Value], error)
	GetLatestTimestamps(ctx context.Context, table string, rows [][]byte,
		sel litetable.ColumnSelection, ts uint64) ([]litetable.RowResult[uint64], error)
	CreateTable(ctx context.Context, table string) error
	Sweep(ctx context.Context, table string, before uint64) error
}

// Handler answers one text protocol request per connection.
type Handler struct {
	queries       queries
	maxBufferSize int
	timeout       time.Duration
}

type HandlerConfig struct {
	Queries queries
	// MaxBufferSize bounds the request size.
	MaxBufferSize int
	// Timeout covers reading the request, running it and writing the response.
	Timeout time.Duration
}

func (c *HandlerConfig) validate() error {
	var errGrp []error
	if c.Queries == nil {
		errGrp = append(errGrp, errors.New("queries are required"))
	}
	if c.MaxBufferSize < 0 {
		errGrp = append(errGrp, errors.New("max buffer size cannot be negative"))
	}
	if c.Timeout < 0 {
		errGrp = append(errGrp, errors.New("timeout cannot be negative"))
	}
	return errors.Join(errGrp...)
}

func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	h := &Handler{
		queries:       cfg.Queries,
		maxBufferSize: cfg.MaxBufferSize,
		timeout:       cfg.Timeout,
	}
	if h.maxBufferSize == 0 {
		h.maxBufferSize = defaultMaxBufferSize
	}
	if h.timeout == 0 {
		h.timeout = defaultTimeout
	}
	return h, nil
}

// Handle implements the server.handler interface.
func (h *Handler) Handle(conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing connection")
		}
	}()

	deadline := time.Now().Add(h.timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		log.Error().Err(err).Msg("failed to set connection deadline")
		return
	}

	buf, err := h.readConn(conn)
	if err != nil {
		log.Error().Err(err).Msg("read error")
		return
	}

	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	response, err := h.respond(ctx, buf)
	if err != nil {
		response = protocol.Error(err)
	}
	if _, err = conn.Write(response); err != nil {
		log.Error().Err(err).Msg("error writing response")
	}
}

func (h *Handler) respond(ctx context.Context, buf []byte) ([]byte, error) {
	msgType, payload, err := protocol.Decode(buf)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, errors.New("empty query")
	}

	switch msgType {
	case protocol.Scan:
		q, err := operations.ParseRangeQuery(string(payload))
		if err != nil {
			return nil, err
		}
		page, err := h.queries.GetRangePage(ctx, q.Table, q.Request, q.Timestamp)
		if err != nil {
			return nil, err
		}
		return marshal(page)
	case protocol.Rows:
		q, err := operations.ParseRowsQuery(string(payload))
		if err != nil {
			return nil, err
		}
		rows, err := h.queries.GetRows(ctx, q.Table, q.Rows, q.Columns, q.Timestamp)
		if err != nil {
			return nil, err
		}
		return marshal(rows)
	case protocol.Create:
		table, err := operations.ParseTable(string(payload))
		if err != nil {
			return nil, err
		}
		if err := h.queries.CreateTable(ctx, table); err != nil {
			return nil, err
		}
		return protocol.OK, nil
	case protocol.Timestamps:
		q, err := operations.ParseRowsQuery(string(payload))
		if err != nil {
			return nil, err
		}
		rows, err := h.queries.GetLatestTimestamps(ctx, q.Table, q.Rows, q.Columns, q.Timestamp)
		if err != nil {
			return nil, err
		}
		return marshal(rows)
	case protocol.Sweep:
		q, err := operations.ParseSweepQuery(string(payload))
		if err != nil {
			return nil, err
		}
		if err := h.queries.Sweep(ctx, q.Table, q.Before); err != nil {
			return nil, err
		}
		return protocol.OK, nil
	}
	return nil, protocol.ErrUnknown
}

func marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return b, nil
}

// every incoming connection is read once into a buffer of maxBufferSize
func (h *Handler) readConn(conn net.Conn) ([]byte, error) {
	buf := make([]byte, h.maxBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
