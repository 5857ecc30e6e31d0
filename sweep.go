package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/litetable/litetable-kvs/internal/operations"
	"github.com/litetable/litetable-kvs/internal/server/grpc"
	"github.com/spf13/cobra"
)

func newSweepCommand() *cobra.Command {
	var (
		address string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sweep table=<name> before=<ts>",
		Short: "Queue the removal of versions shadowed by a newer version below a timestamp.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := operations.ParseSweepQuery(strings.Join(args, " "))
			if err != nil {
				return err
			}

			client, err := grpc.Dial(address)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if _, err := client.Sweep(ctx, &grpc.SweepRequest{
				Table:  query.Table,
				Before: query.Before,
			}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "sweep of %s below %d queued\n", query.Table,
				query.Before)
			return err
		},
	}
	cmd.Flags().StringVarP(&address, "address", "a", "127.0.0.1:9443", "server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "timeout of the request")
	return cmd
}
