package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func purgeCmd() *cobra.Command {
	var (
		olderThanDays int
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "purge-notifications",
		Short: "Delete read notifications older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.notifier.PurgeRead(olderThanDays, dryRun)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would delete %d notification(s)\n", n)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d notification(s)\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than-days", 0, "retention in days (0 uses notification.retention_days)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count matching notifications without deleting")
	return cmd
}
