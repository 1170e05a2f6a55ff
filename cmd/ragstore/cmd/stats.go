package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/spyrelabs/ragstore/internal/config"
	"github.com/spyrelabs/ragstore/internal/output"
	"github.com/spyrelabs/ragstore/internal/telemetry"
)

func newStatsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show search telemetry",
		Long:  `Show per-mode search counts and the latency distribution recorded locally.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			dbPath := filepath.Join(cfg.Paths.DataDir, "metrics.db")
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				out.Dim("no telemetry recorded yet")
				return nil
			}

			store, err := telemetry.OpenSQLiteMetricsStore(dbPath)
			if err != nil {
				return fmt.Errorf("open telemetry: %w", err)
			}
			defer store.Close()

			to := time.Now().Format("2006-01-02")
			from := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

			modes, err := store.GetModeCounts(from, to)
			if err != nil {
				return err
			}
			latencies, err := store.GetLatencyCounts(from, to)
			if err != nil {
				return err
			}

			out.Headerf("Search stats (%s to %s)", from, to)
			out.Newline()

			var total int64
			for _, count := range modes {
				total += count
			}
			out.Linef("  total searches: %d", total)
			for _, mode := range []string{"hybrid", "dense", "sparse"} {
				if count, ok := modes[mode]; ok {
					out.Linef("  %-8s %d", mode, count)
				}
			}

			out.Newline()
			out.Line("  latency:")
			for _, b := range []telemetry.LatencyBucket{
				telemetry.BucketP10, telemetry.BucketP50, telemetry.BucketP100,
				telemetry.BucketP500, telemetry.BucketP1000,
			} {
				if count, ok := latencies[b]; ok {
					out.Linef("    %-6s %d", b, count)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "How many days back to aggregate")
	return cmd
}
