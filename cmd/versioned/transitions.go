package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/services"
)

func newPublishCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <table> <id>",
		Short: "Copy the draft of a record to the live stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, opts, args, func(ctx context.Context, svc *services.VersionedService, table string, id int64) (*database.Record, error) {
				return svc.Publish(ctx, table, id)
			})
		},
	}
}

func newRevertCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <table> <id>",
		Short: "Discard draft changes and restore the live version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, opts, args, func(ctx context.Context, svc *services.VersionedService, table string, id int64) (*database.Record, error) {
				return svc.RevertToLive(ctx, table, id)
			})
		},
	}
}

func newRollbackCmd(opts *rootOptions) *cobra.Command {
	var versionFlag int64

	cmd := &cobra.Command{
		Use:   "rollback <table> <id>",
		Short: "Save an earlier version as the new draft",
		Long:  "Save an earlier version as the new draft. Works for archived records too; publish afterwards to make it live.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if versionFlag < 1 {
				return fmt.Errorf("--ver is required")
			}
			return runTransition(cmd, opts, args, func(ctx context.Context, svc *services.VersionedService, table string, id int64) (*database.Record, error) {
				return svc.Rollback(ctx, table, id, versionFlag)
			})
		},
	}

	cmd.Flags().Int64VarP(&versionFlag, "ver", "v", 0, "Version to roll back to")

	return cmd
}

func newUnpublishCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unpublish <table> <id>",
		Short: "Remove a record from the live stage, keeping the draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemoval(cmd, opts, args, "unpublished", func(svc *services.VersionedService) removal {
				return svc.Unpublish
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Remove a record from the draft stage, keeping the live copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemoval(cmd, opts, args, "deleted from draft", func(svc *services.VersionedService) removal {
				return svc.DeleteFromDraft
			})
		},
	}
}

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <table> <id>",
		Short: "Remove a record from both stages; its history is kept",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemoval(cmd, opts, args, "archived", func(svc *services.VersionedService) removal {
				return svc.Archive
			})
		},
	}
}

type transition func(ctx context.Context, svc *services.VersionedService, table string, id int64) (*database.Record, error)

type removal func(ctx context.Context, table string, id int64) error

func runTransition(cmd *cobra.Command, opts *rootOptions, args []string, fn transition) error {
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

	record, err := fn(context.Background(), a.svc, args[0], id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s #%d is at version %d\n", args[0], record.ID, record.Version)
	return nil
}

func runRemoval(cmd *cobra.Command, opts *rootOptions, args []string, done string, pick func(*services.VersionedService) removal) error {
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

	if err := pick(a.svc)(context.Background(), args[0], id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s\n", args[0], id, done)
	return nil
}
