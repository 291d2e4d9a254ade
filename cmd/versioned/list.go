package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/services"
	"github.com/vault-md/versioned/internal/versioned"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		status         string
		allVersions    bool
		latestVersions bool
		format         string
	)

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List the records of a table",
		Long: `List the records of a table as seen from the reading mode (--stage, --archive-date).

--status filters by publication state instead: any of draft, modified, published, archived.
--all-versions and --latest-versions list history rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			entity, err := database.LookupEntity(args[0])
			if err != nil {
				return err
			}

			ctx, err := opts.readingContext(context.Background())
			if err != nil {
				return err
			}

			queryArgs := services.ArgsFromContext(ctx)
			switch {
			case cmd.Flags().Changed("status"):
				queryArgs = versioned.QueryArgs{Mode: versioned.ModeStatus, Status: versioned.ParseStatusFilters(status)}
			case allVersions:
				queryArgs = versioned.QueryArgs{Mode: versioned.ModeAllVersions}
			case latestVersions:
				queryArgs = versioned.QueryArgs{Mode: versioned.ModeLatestVersions}
			}

			a, err := opts.open(nil)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			records, err := a.svc.List(ctx, entity.Table, queryArgs)
			if err != nil {
				return err
			}

			if format == "json" {
				output := make([]recordOutput, 0, len(records))
				for _, r := range records {
					output = append(output, toRecordOutput(r))
				}
				return writeJSON(cmd, output)
			}

			if m, ok := queryArgs.ReadingMode(); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "Reading %s\n", readingmode.Describe(m))
			}
			outputTable(cmd, entity, records)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Comma separated statuses: draft, modified, published, archived")
	cmd.Flags().BoolVar(&allVersions, "all-versions", false, "List every version of every record")
	cmd.Flags().BoolVar(&latestVersions, "latest-versions", false, "List the newest version of every record, archived ones included")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// wrapString wraps a string to fit within maxWidth, accounting for multi-byte characters
func wrapString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return s
	}

	s = strings.TrimSpace(s)
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}

	var result strings.Builder
	var currentLine strings.Builder
	currentWidth := 0

	for _, r := range s {
		charWidth := runewidth.RuneWidth(r)
		if currentWidth+charWidth > maxWidth && currentWidth > 0 {
			result.WriteString(currentLine.String())
			result.WriteString("\n")
			currentLine.Reset()
			currentWidth = 0
		}
		currentLine.WriteRune(r)
		currentWidth += charWidth
	}

	if currentLine.Len() > 0 {
		result.WriteString(currentLine.String())
	}

	return result.String()
}

// singleLine folds line breaks so a value fits one table cell.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// columnWidths holds the calculated widths of the record columns
type columnWidths struct {
	id         int
	version    int
	lastEdited int
	field      int
}

// calculateColumnWidths splits what is left of the terminal after the fixed
// columns evenly between the entity's fields.
func calculateColumnWidths(termWidth int, numFields int, records []database.Record) columnWidths {
	w := columnWidths{id: 2, version: 7, lastEdited: 19}
	for _, r := range records {
		if n := len(strconv.FormatInt(r.ID, 10)); n > w.id {
			w.id = n
		}
	}

	// Reserve space for table borders and padding (roughly 3 chars per column)
	numColumns := 3 + numFields
	available := termWidth - numColumns*3 - w.id - w.version - w.lastEdited
	if numFields > 0 {
		w.field = available / numFields
	}
	if w.field < 10 {
		w.field = 10
	}
	return w
}

func outputTable(cmd *cobra.Command, entity database.Entity, records []database.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	widths := calculateColumnWidths(getTerminalWidth(), len(entity.Fields), records)

	// go-pretty's WidthMax doesn't handle multi-byte characters correctly,
	// so cells are wrapped and truncated before they are added.
	header := table.Row{"ID", "Version", "Last Edited"}
	for _, f := range entity.Fields {
		header = append(header, f)
	}
	t.AppendHeader(header)

	for _, r := range records {
		row := table.Row{r.ID, r.Version, r.LastEdited.Format(database.TimestampLayout)}
		for i, f := range entity.Fields {
			value := singleLine(r.Fields[f])
			if i == 0 {
				row = append(row, wrapString(value, widths.field))
			} else {
				row = append(row, runewidth.Truncate(value, widths.field, "..."))
			}
		}
		t.AppendRow(row)
	}

	t.Render()
}
