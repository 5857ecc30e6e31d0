package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/operations"
	"github.com/litetable/litetable-kvs/internal/server/grpc"
	"github.com/spf13/cobra"
)

type scanCommand struct {
	address string
	all     bool
	timeout time.Duration
}

func newScanCommand() *cobra.Command {
	s := &scanCommand{}
	cmd := &cobra.Command{
		Use:   "scan table=<name> [start=..] [end=..] [reverse=true] [columns=a,b] [batch=n] [ts=n]",
		Short: "Scan a range of rows and print the first page, or with --all every row, as JSON.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := operations.ParseRangeQuery(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return s.run(query, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&s.address, "address", "a", "127.0.0.1:9443", "server address")
	cmd.Flags().BoolVar(&s.all, "all", false,
		"stream every row of the range, all read at the same timestamp")
	cmd.Flags().DurationVar(&s.timeout, "timeout", 30*time.Second, "timeout of the request")
	return cmd
}

func (s *scanCommand) run(query *operations.RangeQuery, out io.Writer) error {
	client, err := grpc.Dial(s.address)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if s.all {
		return s.stream(ctx, client, query, enc)
	}
	page, err := s.page(ctx, client, query)
	if err != nil {
		return err
	}
	if err := enc.Encode(page); err != nil {
		return fmt.Errorf("failed to print page: %w", err)
	}
	return nil
}

func (s *scanCommand) page(ctx context.Context, client *grpc.Client,
	query *operations.RangeQuery) (*litetable.Page[litetable.Value], error) {
	resp, err := client.GetRanges(ctx, &grpc.GetRangesRequest{
		Table:     query.Table,
		Ranges:    []grpc.Range{grpc.NewRange(query.Request)},
		Timestamp: query.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Pages) != 1 {
		return nil, fmt.Errorf("expected one page, got %d", len(resp.Pages))
	}
	return resp.Pages[0], nil
}

// stream prints every row of the range. The server pages through it at one read timestamp.
func (s *scanCommand) stream(ctx context.Context, client *grpc.Client,
	query *operations.RangeQuery, enc *json.Encoder) error {
	rows, err := client.ScanRange(ctx, &grpc.ScanRangeRequest{
		Table:     query.Table,
		Range:     grpc.NewRange(query.Request),
		Timestamp: query.Timestamp,
	})
	if err != nil {
		return err
	}
	for {
		msg, err := rows.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Encode(msg.Row); err != nil {
			return fmt.Errorf("failed to print row: %w", err)
		}
	}
}
