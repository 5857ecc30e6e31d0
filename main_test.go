package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/litetable/litetable-kvs/internal/backend/memstore"
	"github.com/litetable/litetable-kvs/internal/backend/sqlstore/memsql"
	"github.com/litetable/litetable-kvs/internal/config"
	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/operations"
	"github.com/litetable/litetable-kvs/internal/ranges"
	"github.com/litetable/litetable-kvs/internal/reaper"
	"github.com/litetable/litetable-kvs/internal/server/grpc"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	tests := map[string]struct {
		backend  string
		driver   string
		expected string
	}{
		"memory":  {backend: config.BackendMemory, expected: "Memory Store"},
		"leveldb": {backend: config.BackendLevelDB, expected: "LevelDB Store"},
		"badger":  {backend: config.BackendBadger, expected: "Badger Store"},
		"sql":     {backend: config.BackendSQL, driver: memsql.DriverName, expected: "SQL Store"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			store, err := newStore(&config.Config{
				Backend:   tc.backend,
				DataDir:   t.TempDir(),
				SQLDriver: tc.driver,
				SQLDSN:    t.Name(),
				Tables:    []string{"events"},
			})
			req.NoError(err)
			req.NoError(store.Start())
			defer func() {
				req.NoError(store.Stop())
			}()

			req.Equal(tc.expected, store.Name())
			req.True(store.TableExists("events"))
		})
	}
}

func TestNewStore_MySQL(t *testing.T) {
	req := require.New(t)

	_, err := newStore(&config.Config{
		Backend:   config.BackendSQL,
		SQLDriver: config.DefaultSQLDriver,
		SQLDSN:    "not-a-dsn",
	})
	req.Error(err)

	store, err := newStore(&config.Config{
		Backend:   config.BackendSQL,
		SQLDriver: config.DefaultSQLDriver,
		SQLDSN:    "litetable:litetable@tcp(127.0.0.1:1)/litetable?timeout=1s",
	})
	req.NoError(err)
	req.Equal("SQL Store", store.Name())
	req.Error(store.Start(), "no server listens on port 1")
	_ = store.Stop()
}

// serve runs a manager over a memory store holding rows a, b and c on a loopback port.
func serve(t *testing.T) (string, *operations.Manager) {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()

	store, err := memstore.New(&memstore.Config{Tables: []string{"t"}})
	req.NoError(err)
	req.NoError(store.Start())
	scanner, err := ranges.New(&ranges.Config{Sessions: store})
	req.NoError(err)
	sweeper, err := reaper.New(&reaper.Config{Scanner: scanner, Store: store, Interval: time.Hour})
	req.NoError(err)
	req.NoError(sweeper.Start())
	manager, err := operations.New(&operations.Config{
		Store:   store,
		Scanner: scanner,
		Sweeper: sweeper,
	})
	req.NoError(err)

	for _, row := range []string{"a", "b", "c"} {
		_, err := manager.Put(ctx, "t", []litetable.CellValue{{
			Cell:     litetable.Cell{Row: []byte(row), Column: []byte("v")},
			Contents: []byte(row),
		}}, 5)
		req.NoError(err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	srv, err := grpc.NewServer(&grpc.Config{Listener: lis, Operations: manager})
	req.NoError(err)
	req.NoError(srv.Start())
	t.Cleanup(func() {
		_ = srv.Stop()
		_ = sweeper.Stop()
		_ = store.Stop()
	})
	return lis.Addr().String(), manager
}

// decodeAll decodes every JSON document printed to out.
func decodeAll[T any](t *testing.T, out *bytes.Buffer) []T {
	t.Helper()
	var docs []T
	dec := json.NewDecoder(out)
	for {
		var doc T
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs
		}
		require.NoError(t, err)
		docs = append(docs, doc)
	}
}

func TestScanCommand(t *testing.T) {
	address, _ := serve(t)

	tests := map[string]struct {
		args     []string
		expected []string
	}{
		"first page only": {
			args:     []string{"scan", "--address", address, "table=t", "batch=2"},
			expected: []string{"a", "b"},
		},
		"reverse first page": {
			args: []string{"scan", "--address", address, "table=t", "start=c", "end=a",
				"reverse=true"},
			expected: []string{"c"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			out := &bytes.Buffer{}
			cmd := newRootCommand()
			cmd.SetOut(out)
			cmd.SetArgs(tc.args)
			req.NoError(cmd.Execute())

			pages := decodeAll[litetable.Page[litetable.Value]](t, out)
			req.Len(pages, 1)
			var rows []string
			for _, r := range pages[0].Rows {
				rows = append(rows, string(r.Row))
			}
			req.Equal(tc.expected, rows)
		})
	}
}

func TestScanCommand_All(t *testing.T) {
	address, _ := serve(t)

	tests := map[string]struct {
		args     []string
		expected []string
	}{
		"forward one row per page": {
			args:     []string{"scan", "--address", address, "--all", "table=t", "batch=1"},
			expected: []string{"a", "b", "c"},
		},
		"reverse": {
			args: []string{"scan", "--address", address, "--all", "table=t", "start=c",
				"end=a", "reverse=true"},
			expected: []string{"c", "b"},
		},
		"before the rows were written": {
			args:     []string{"scan", "--address", address, "--all", "table=t", "ts=5"},
			expected: nil,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			out := &bytes.Buffer{}
			cmd := newRootCommand()
			cmd.SetOut(out)
			cmd.SetArgs(tc.args)
			req.NoError(cmd.Execute())

			var rows []string
			for _, r := range decodeAll[litetable.RowResult[litetable.Value]](t, out) {
				rows = append(rows, string(r.Row))
			}
			req.Equal(tc.expected, rows)
		})
	}
}

func TestSweepCommand(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	address, manager := serve(t)

	_, err := manager.Put(ctx, "t", []litetable.CellValue{{
		Cell:     litetable.Cell{Row: []byte("a"), Column: []byte("v")},
		Contents: []byte("newer"),
	}}, 8)
	req.NoError(err)

	out := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"sweep", "--address", address, "table=t", "before=10"})
	req.NoError(cmd.Execute())
	req.True(strings.Contains(out.String(), "queued"), out.String())

	req.Eventually(func() bool {
		rows, err := manager.GetRows(ctx, "t", [][]byte{[]byte("a")}, litetable.AllColumns(), 6)
		return err == nil && len(rows) == 0
	}, 5*time.Second, 10*time.Millisecond, "the version at 5 is shadowed by 8 and swept")

	cmd = newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"sweep", "--address", address, "table=nope", "before=10"})
	req.Error(cmd.Execute())
}

func TestScanCommand_InvalidQuery(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"scan", "table"})
	require.Error(t, cmd.Execute())
}
