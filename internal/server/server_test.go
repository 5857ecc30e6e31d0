package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/litetable/litetable-kvs/internal/backend/memstore"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/operations"
	"github.com/litetable/litetable-kvs/internal/ranges"
	"github.com/litetable/litetable-kvs/internal/reaper"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *operations.Manager {
	t.Helper()
	req := require.New(t)
	store, err := memstore.New(&memstore.Config{Tables: []string{"t"}})
	req.NoError(err)
	req.NoError(store.Start())
	t.Cleanup(func() {
		_ = store.Stop()
	})
	scanner, err := ranges.New(&ranges.Config{Sessions: store})
	req.NoError(err)
	sweeper, err := reaper.New(&reaper.Config{Scanner: scanner, Store: store, Interval: time.Hour})
	req.NoError(err)
	req.NoError(sweeper.Start())
	t.Cleanup(func() {
		_ = sweeper.Stop()
	})
	m, err := operations.New(&operations.Config{Store: store, Scanner: scanner, Sweeper: sweeper})
	req.NoError(err)

	for _, row := range []string{"a", "b", "c"} {
		_, err := m.Put(context.Background(), "t", []litetable.CellValue{{
			Cell:     litetable.Cell{Row: []byte(row), Column: []byte("v")},
			Contents: []byte(row),
		}}, 3)
		req.NoError(err)
	}
	return m
}

func TestNew(t *testing.T) {
	h := &Handler{}
	tests := map[string]struct {
		cfg   *Config
		error error
	}{
		"invalid config": {
			cfg:   &Config{},
			error: errors.New("port must be between 1 and 65535\nhandler is required"),
		},
		"negative connections": {
			cfg:   &Config{Port: 9000, Handler: h, MaxConnections: -1},
			error: errors.New("max connections cannot be negative"),
		},
		"valid config": {
			cfg: &Config{Address: "127.0.0.1", Port: 0, Handler: h},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			if tc.error == nil {
				lis, err := net.Listen("tcp", "127.0.0.1:0")
				req.NoError(err)
				tc.cfg.Listener = lis
			}
			got, err := New(tc.cfg)
			if tc.error != nil {
				req.Error(err)
				req.Equal(tc.error.Error(), err.Error())
				return
			}

			req.NoError(err)
			req.Equal(defaultMaxConnections, got.maxConnections)
			req.NoError(got.listener.Close())
		})
	}
}

func TestServer_Name(t *testing.T) {
	s := &Server{}
	require.Equal(t, "LiteTable Query Server", s.Name())
}

// roundTrip sends one request to the server at address and returns the response.
func roundTrip(t *testing.T, address, request string) string {
	t.Helper()
	conn, err := net.Dial("tcp", address)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(request))
	require.NoError(t, err)
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(resp)
}

func TestServer_Queries(t *testing.T) {
	req := require.New(t)
	m := newManager(t)
	handler, err := NewHandler(&HandlerConfig{Queries: m})
	req.NoError(err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	srv, err := New(&Config{Listener: lis, Handler: handler})
	req.NoError(err)
	req.NoError(srv.Start())
	defer func() {
		req.NoError(srv.Stop())
	}()
	address := lis.Addr().String()

	t.Run("scan", func(t *testing.T) {
		var page litetable.Page[litetable.Value]
		resp := roundTrip(t, address, "SCAN table=t batch=2\n")
		require.NoError(t, json.Unmarshal([]byte(resp), &page))
		require.Len(t, page.Rows, 2)
		require.Equal(t, litetable.Token{NextStart: []byte("b\x00"), HasMore: true}, page.Token)
	})

	t.Run("rows", func(t *testing.T) {
		var rows []litetable.RowResult[litetable.Value]
		resp := roundTrip(t, address, "ROWS table=t rows=c,zz")
		require.NoError(t, json.Unmarshal([]byte(resp), &rows))
		require.Len(t, rows, 1)
		require.Equal(t, []byte("c"), rows[0].Row)
	})

	t.Run("create", func(t *testing.T) {
		require.Equal(t, "OK", roundTrip(t, address, "CREATE table=events"))
		var rows []litetable.RowResult[litetable.Value]
		resp := roundTrip(t, address, "ROWS table=events rows=a")
		require.NoError(t, json.Unmarshal([]byte(resp), &rows))
		require.Empty(t, rows)
	})

	t.Run("timestamps", func(t *testing.T) {
		var rows []litetable.RowResult[uint64]
		resp := roundTrip(t, address, "TIMESTAMPS table=t rows=a,b columns=v")
		require.NoError(t, json.Unmarshal([]byte(resp), &rows))
		require.Len(t, rows, 2)
		ts, ok := rows[1].Get([]byte("v"))
		require.True(t, ok)
		require.Equal(t, uint64(3), ts)
	})

	t.Run("sweep", func(t *testing.T) {
		_, err := m.Put(context.Background(), "t", []litetable.CellValue{{
			Cell:     litetable.Cell{Row: []byte("a"), Column: []byte("v")},
			Contents: []byte("newer"),
		}}, 7)
		require.NoError(t, err)

		require.Equal(t, "OK", roundTrip(t, address, "SWEEP table=t before=10"))
		require.Eventually(t, func() bool {
			var rows []litetable.RowResult[uint64]
			resp := roundTrip(t, address, "TIMESTAMPS table=t rows=a ts=5")
			return json.Unmarshal([]byte(resp), &rows) == nil && len(rows) == 0
		}, 5*time.Second, 10*time.Millisecond, "the version at 3 is shadowed by 7 and swept")
	})

	errorsCases := map[string]struct {
		request  string
		contains string
	}{
		"unknown verb":        {request: "DROP table=t", contains: "unknown litetable protocol"},
		"empty query":         {request: "SCAN  ", contains: "empty query"},
		"bad query":           {request: "SCAN table=t pizza=1", contains: "unknown parameter"},
		"unknown table":       {request: "SCAN table=nope", contains: "table not found"},
		"sweep needs before":  {request: "SWEEP table=t", contains: "before"},
		"sweep unknown table": {request: "SWEEP table=nope before=9", contains: "table not found"},
	}
	for name, tc := range errorsCases {
		t.Run(name, func(t *testing.T) {
			resp := roundTrip(t, address, tc.request)
			require.True(t, strings.HasPrefix(resp, "ERROR: "), resp)
			require.Contains(t, resp, tc.contains)
		})
	}
}

func TestNewHandler(t *testing.T) {
	_, err := NewHandler(&HandlerConfig{})
	require.EqualError(t, err, "queries are required")

	h, err := NewHandler(&HandlerConfig{Queries: newManager(t)})
	require.NoError(t, err)
	require.Equal(t, defaultMaxBufferSize, h.maxBufferSize)
	require.Equal(t, defaultTimeout, h.timeout)
}
