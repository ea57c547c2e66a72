package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func replayCmd() *cobra.Command {
	var (
		failed bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "replay [delivery-id]",
		Short: "Re-dispatch stored webhook events",
		Long: `Re-dispatch a stored webhook event by its delivery id, or every failed
event that has not exhausted its replay attempts.

Examples:
  marketctl replay 6f1c2d7e-...
  marketctl replay --failed --limit 50`,
		Args: func(cmd *cobra.Command, args []string) error {
			if failed && len(args) > 0 {
				return errors.New("--failed does not take a delivery id")
			}
			if !failed && len(args) != 1 {
				return errors.New("requires a delivery id or --failed")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if failed {
				recovered, err := a.webhooks.ReplayFailed(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %d failed event(s)\n", recovered)
				return nil
			}

			outcome, err := a.webhooks.Replay(ctx, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], outcome)
			return err
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "replay all failed events")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum events to replay with --failed")
	return cmd
}
