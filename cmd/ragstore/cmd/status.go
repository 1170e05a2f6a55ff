package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spyrelabs/ragstore/internal/output"
	"github.com/spyrelabs/ragstore/internal/status"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool
	var docID string

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of an ingestion job",
		Long: `Show a job's status and per-document progress. With --doc, show the
persisted metadata record for a single document instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if docID != "" {
				return printDocMetadata(cmd, out, a, docID, asJSON)
			}
			if len(args) == 0 {
				return fmt.Errorf("a job ID is required (or use --doc <doc-id>)")
			}
			return printJobStatus(cmd, out, a, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&docID, "doc", "", "Show one document's metadata record instead")
	return cmd
}

func printJobStatus(cmd *cobra.Command, out *output.Writer, a *app, jobID string, asJSON bool) error {
	job, err := a.tracker.ReadJob(jobID)
	if err != nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	}

	out.Headerf("Job %s: %s", job.JobID, job.Status)
	if job.Error != "" {
		out.Errorf("error: %s", job.Error)
	}
	out.Dim("last updated " + job.LastUpdatedAt)
	out.Newline()
	for _, d := range job.Documents {
		switch d.Status {
		case status.DocCompleted:
			out.Successf("%s", d.ID)
		case status.DocFailed:
			out.Errorf("%s", d.ID)
		default:
			out.Linef("  %s  %s", d.Status, d.ID)
		}
	}
	return nil
}

func printDocMetadata(cmd *cobra.Command, out *output.Writer, a *app, docID string, asJSON bool) error {
	record, err := a.tracker.ReadDocMetadata(docID)
	if err != nil {
		return fmt.Errorf("document %s not found", docID)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	out.Headerf("Document %s", docID)
	for key, value := range record {
		out.Linef("  %s: %v", key, value)
	}
	return nil
}
