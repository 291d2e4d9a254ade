package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type statusOutput struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	Label        string `json:"label"`
	Title        string `json:"title"`
	DraftVersion *int64 `json:"draft_version,omitempty"`
	LiveVersion  *int64 `json:"live_version,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status <table> <id>",
		Short: "Show whether a record is draft only, published, modified, on live only, or archived",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			a, err := opts.open(nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			st, err := a.svc.Status(context.Background(), args[0], id)
			if err != nil {
				return err
			}

			output := statusOutput{
				ID:           st.ID,
				Status:       st.Status.Key(),
				Label:        st.Status.Label(),
				Title:        st.Status.Title(),
				DraftVersion: st.DraftVersion,
				LiveVersion:  st.LiveVersion,
			}
			if format == "json" {
				return writeJSON(cmd, output)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:        %s (%s)\n", output.Label, output.Title)
			fmt.Fprintf(out, "Draft version: %s\n", formatVersion(output.DraftVersion))
			fmt.Fprintf(out, "Live version:  %s\n", formatVersion(output.LiveVersion))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func formatVersion(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
