package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vault-md/versioned/internal/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			server := mcp.NewServer(a.svc, opts.settings.ReadingMode, version)
			return server.Run(context.Background())
		},
	}

	return cmd
}
