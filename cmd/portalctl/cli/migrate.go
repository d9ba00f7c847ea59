package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// MigrateCmd applies the embedded schema migrations.
func MigrateCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, load, func(ctx context.Context, d *Deps) error {
				if d.Migrate == nil {
					return errors.New("migrate: database not configured")
				}
				if err := d.Migrate(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date\n", color.New(color.FgGreen).Sprint("OK"))
				return nil
			})
		},
	}
}
