package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spyrelabs/ragstore/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Expose search, index_status, and job_status tools to MCP clients
over stdio. Stdout carries JSON-RPC exclusively; all diagnostics go to
the log file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := mcp.NewServer(a.store, a.tracker, nil)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}
}
