package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every bar with its current occupancy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			bars, err := c.ListBars(cmd.Context())
			if err != nil {
				return err
			}
			renderBars(cmd.OutOrStdout(), bars, time.Now())
			return nil
		},
	}
}
