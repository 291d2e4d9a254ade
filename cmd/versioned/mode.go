package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-md/versioned/internal/readingmode"
)

func newModeCmd(opts *rootOptions) *cobra.Command {
	var (
		persist bool
		reset   bool
	)

	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Print the reading mode the flags and config resolve to",
		Long: `Print the reading mode the flags and config resolve to.

--persist saves the resolved mode so later commands read under it without flags.
--reset forgets the saved mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if persist && reset {
				return fmt.Errorf("--persist and --reset are mutually exclusive")
			}

			state, session, err := opts.readingState()
			if err != nil {
				return err
			}

			switch {
			case persist:
				state.Persist()
			case reset:
				state.Reset()
			}
			if session.err != nil {
				return fmt.Errorf("save reading mode: %w", session.err)
			}

			m := state.EffectiveMode()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", m, readingmode.Describe(m))
			return nil
		},
	}

	cmd.Flags().BoolVar(&persist, "persist", false, "Save the resolved mode for later commands")
	cmd.Flags().BoolVar(&reset, "reset", false, "Forget the saved mode")

	return cmd
}
