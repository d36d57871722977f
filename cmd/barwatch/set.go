package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
)

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <bar-id> <count>",
		Short: "Log in and set a bar's current headcount",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bar id must be an integer: %q", args[0])
			}
			count, err := strconv.Atoi(args[1])
			if err != nil || count < 0 {
				return fmt.Errorf("count must be a non-negative integer: %q", args[1])
			}
			username, password := a.v.GetString(cfgKeyUsername), a.v.GetString(cfgKeyPassword)
			if username == "" || password == "" {
				return errors.New("set needs --username and --password (or BARWATCH_USERNAME / BARWATCH_PASSWORD)")
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := c.Login(ctx, username, password); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			defer func() { _ = c.Logout(ctx) }()

			b, err := c.UpdateCount(ctx, id, count)
			if err != nil {
				return err
			}
			renderBars(cmd.OutOrStdout(), []entity.Bar{*b}, time.Now())
			return nil
		},
	}
}
