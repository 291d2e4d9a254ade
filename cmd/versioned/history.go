package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/vault-md/versioned/internal/database"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history <table> <id>",
		Short: "List every version of a record, oldest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			entity, err := database.LookupEntity(args[0])
			if err != nil {
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

			versions, err := a.svc.History(context.Background(), entity.Table, id)
			if err != nil {
				return err
			}

			if format == "json" {
				output := make([]versionOutput, 0, len(versions))
				for _, v := range versions {
					output = append(output, versionOutput{
						recordOutput: toRecordOutput(v.Record),
						WasDraft:     v.WasDraft,
						WasPublished: v.WasPublished,
						WasDeleted:   v.WasDeleted,
					})
				}
				return writeJSON(cmd, output)
			}

			outputHistory(cmd, entity, versions)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

// historyEvent names what a history row recorded.
func historyEvent(v database.VersionRecord) string {
	switch {
	case v.WasDeleted && v.WasDraft && v.WasPublished:
		return "archived"
	case v.WasDeleted && v.WasPublished:
		return "unpublished"
	case v.WasDeleted:
		return "deleted from draft"
	case v.WasPublished:
		return "published"
	default:
		return "saved"
	}
}

func outputHistory(cmd *cobra.Command, entity database.Entity, versions []database.VersionRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	fieldWidth := calculateColumnWidths(getTerminalWidth()-20, len(entity.Fields), nil).field

	header := table.Row{"Version", "Event", "Last Edited"}
	for _, f := range entity.Fields {
		header = append(header, f)
	}
	t.AppendHeader(header)

	for _, v := range versions {
		row := table.Row{v.Version, historyEvent(v), v.LastEdited.Format(database.TimestampLayout)}
		for _, f := range entity.Fields {
			row = append(row, runewidth.Truncate(singleLine(v.Fields[f]), fieldWidth, "..."))
		}
		t.AppendRow(row)
	}

	t.Render()
}
