package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spyrelabs/ragstore/internal/output"
)

func newResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the index and its local cache files",
		Long: `Delete the configured index and any local cache files derived from
it. Idempotent: resetting a missing index is a no-op. Job and document
status records are not touched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			if !force {
				return fmt.Errorf("reset deletes all indexed data; re-run with --force to confirm")
			}

			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			out.Successf("index %s reset", a.store.IndexName())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")
	return cmd
}
