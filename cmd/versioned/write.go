package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newWriteCmd(opts *rootOptions) *cobra.Command {
	var (
		setFlags  []string
		fileField string
		filePath  string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "write <table> [id]",
		Short: "Save fields to the draft stage of a record",
		Long:  "Save fields to the draft stage. Without an id a new record is created. Every write adds a version to the record's history.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			fields, err := parseFieldFlags(setFlags)
			if err != nil {
				return err
			}

			var id int64
			if len(args) == 2 {
				if id, err = parseID(args[1]); err != nil {
					return err
				}
			}

			if fileField != "" {
				content, err := readContent(cmd, filePath)
				if err != nil {
					return err
				}
				fields[fileField] = content
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to write: use --set Name=value or --field")
			}

			a, err := opts.open(nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			record, err := a.svc.WriteDraft(context.Background(), args[0], id, fields)
			if err != nil {
				return err
			}

			if format == "json" {
				return writeJSON(cmd, toRecordOutput(*record))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d saved to draft as version %d\n", args[0], record.ID, record.Version)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&setFlags, "set", "s", nil, "Field value as Name=value (repeatable)")
	cmd.Flags().StringVar(&fileField, "field", "", "Field to fill from --file or stdin")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read the --field value from file instead of stdin")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func readContent(cmd *cobra.Command, filePath string) (string, error) {
	if filePath != "" {
		bytes, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "Enter content (Ctrl-D when done):")
		}
	}

	bytes, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(bytes), "\n"), nil
}
