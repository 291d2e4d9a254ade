package main

import (
	"github.com/spf13/cobra"

	"github.com/vault-md/versioned/internal/config"
	"github.com/vault-md/versioned/internal/logging"
)

// rootOptions holds the persistent flags and the settings they resolve to.
type rootOptions struct {
	configFile   string
	logLevel     string
	dbPath       string
	stage        string
	archiveDate  string
	archiveStage string

	settings *config.Settings
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "versioned",
		Short:        "versioned - draft/live staging and history for records",
		Long:         "versioned keeps a draft and a live copy of every record, with the full history of both, and reads them by stage or as of a past date.",
		SilenceUsage: true,
		Version:      version,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/versioned/config.yaml)")
	flags.StringVar(&opts.logLevel, "loglevel", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.dbPath, "db", "", "Database file (overrides db_path)")
	flags.StringVar(&opts.stage, "stage", "", "Stage to read: Draft or Live")
	flags.StringVar(&opts.archiveDate, "archive-date", "", "Read the archive as of this date (YYYY-MM-DD)")
	flags.StringVar(&opts.archiveStage, "archive-stage", "", "Stage the archive is resolved against: Draft or Live")

	cmd.AddCommand(newWriteCmd(opts))
	cmd.AddCommand(newPublishCmd(opts))
	cmd.AddCommand(newUnpublishCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newArchiveCmd(opts))
	cmd.AddCommand(newRevertCmd(opts))
	cmd.AddCommand(newRollbackCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newModeCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))

	return cmd
}

// load reads the settings and applies flag overrides.
func (o *rootOptions) load(cmd *cobra.Command) error {
	settings, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		settings.DBPath = o.dbPath
	}
	if cmd.Flags().Changed("loglevel") {
		settings.LogLevel = o.logLevel
	}
	if err := logging.SetLogLevel(settings.LogLevel); err != nil {
		return err
	}
	logging.Log.SetOutput(cmd.ErrOrStderr())

	o.settings = settings
	return nil
}
