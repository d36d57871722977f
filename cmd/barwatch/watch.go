package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oksasatya/bar-occupancy/pkg/client"
)

func newWatchCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-print the bar list every interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			return watch(ctx, cmd, client.NewPoller(c, a.v.GetDuration(cfgKeyInterval)), count, cancel)
		},
	}
	cmd.Flags().Duration(cfgKeyInterval, client.DefaultPollInterval, "poll interval (minimum 1s)")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many polls (0 = forever)")
	_ = a.v.BindPFlag(cfgKeyInterval, cmd.Flags().Lookup(cfgKeyInterval))
	return cmd
}

func watch(ctx context.Context, cmd *cobra.Command, p *client.Poller, count int, cancel context.CancelFunc) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	seen := 0
	for snap := range p.Run(ctx) {
		seen++
		if snap.Err != nil {
			if snap.FetchedAt.IsZero() {
				fmt.Fprintf(errOut, "poll failed: %v\n", snap.Err)
			} else {
				fmt.Fprintf(errOut, "poll failed: %v (showing data from %s ago)\n", snap.Err, time.Since(snap.FetchedAt).Round(time.Second))
			}
		} else {
			renderBars(out, snap.Bars, snap.FetchedAt)
		}
		if count > 0 && seen >= count {
			cancel()
		}
	}
	return nil
}
