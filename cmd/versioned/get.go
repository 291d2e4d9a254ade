package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/versioned"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	var (
		versionFlag int64
		format      string
	)

	cmd := &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Show one record as seen from the reading mode",
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

			ctx, err := opts.readingContext(context.Background())
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

			var record *database.Record
			if cmd.Flags().Changed("ver") {
				version := versionFlag
				record, err = a.svc.Find(ctx, entity.Table, versioned.QueryArgs{Mode: versioned.ModeVersion, Version: &version}, id)
			} else {
				record, err = a.svc.Get(ctx, entity.Table, id)
			}
			if err != nil {
				return err
			}

			if format == "json" {
				return writeJSON(cmd, toRecordOutput(*record))
			}
			outputRecord(cmd, entity, *record)
			return nil
		},
	}

	cmd.Flags().Int64VarP(&versionFlag, "ver", "v", 0, "Specific version to retrieve")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func outputRecord(cmd *cobra.Command, entity database.Entity, r database.Record) {
	out := cmd.OutOrStdout()
	width := len("Last Edited")
	for _, f := range entity.Fields {
		if len(f) > width {
			width = len(f)
		}
	}

	fmt.Fprintf(out, "%-*s  %d\n", width, "ID", r.ID)
	fmt.Fprintf(out, "%-*s  %d\n", width, "Version", r.Version)
	fmt.Fprintf(out, "%-*s  %s\n", width, "Last Edited", r.LastEdited.Format(database.TimestampLayout))
	for _, f := range entity.Fields {
		fmt.Fprintf(out, "%-*s  %s\n", width, f, r.Fields[f])
	}
}
