package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
)

func newChipDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chipdb",
		Short: "Inspect and export chip databases",
	}

	var width, height int
	export := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the built-in fixture chip database (.json, .yaml or .yml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := chipdb.FixtureOptions{Width: a.cfg.Fixture.Width, Height: a.cfg.Fixture.Height}
			if width > 0 {
				opts.Width = width
			}
			if height > 0 {
				opts.Height = height
			}
			db, err := chipdb.Fixture(opts)
			if err != nil {
				return err
			}
			if err := db.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d fixture to %s\n", opts.Width, opts.Height, args[0])
			return nil
		},
	}
	export.Flags().IntVar(&width, "width", 0, "logic tile columns (default: fixture.width)")
	export.Flags().IntVar(&height, "height", 0, "logic tile rows (default: fixture.height)")

	check := &cobra.Command{
		Use:   "check <file>",
		Short: "Load and validate a chip database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := chipdb.Load(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(export, check)
	return cmd
}
