package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qs3c/gigmarket_server/internal/webhook"
)

func signCmd() *cobra.Command {
	var (
		secret string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the webhook signature for a payload",
		Long: `Compute the hex HMAC-SHA256 signature the gateway would send for a payload.
Reads stdin when --file is omitted.

Examples:
  marketctl sign --secret whsec_xxx --file payload.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("WEBHOOK_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or WEBHOOK_SECRET is required")
			}

			var (
				body []byte
				err  error
			)
			if file == "" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), webhook.Sign(body, secret))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "webhook shared secret")
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file")
	return cmd
}
