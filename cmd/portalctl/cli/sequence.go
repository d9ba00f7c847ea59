package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jrr-automobiles/portal/internal/sequence"
)

// SequenceCmd groups the job card counter commands.
func SequenceCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Inspect or re-seed job card number counters",
	}
	cmd.AddCommand(sequenceShowCmd(load), sequenceSetCmd(load))
	return cmd
}

func sequenceShowCmd(load Loader) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the last issued and next job card number for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, load, func(ctx context.Context, d *Deps) error {
				if year == 0 {
					year = d.Now().In(d.Location).Year()
				}
				current, err := d.Allocator.Current(ctx, sequence.PartitionKey(year))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Counter: %s\n", sequence.PartitionKey(year))
				if current == 0 {
					fmt.Fprintf(out, "Last issued: %s\n", color.New(color.FgYellow).Sprint("(none)"))
				} else {
					fmt.Fprintf(out, "Last issued: %s\n", sequence.Format(d.Prefix, year, current))
				}
				fmt.Fprintf(out, "Next: %s\n", sequence.Format(d.Prefix, year, current+1))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "business year (defaults to the current year in the shop timezone)")
	return cmd
}

func sequenceSetCmd(load Loader) *cobra.Command {
	var (
		year  int
		value int64
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Re-seed a year's counter after a data migration",
		Long: `Set moves the counter for a year forward so the next job card receives
value+1. Counters never move backwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year <= 0 {
				return errors.New("--year is required")
			}
			if value < 0 {
				return errors.New("--value must not be negative")
			}
			return withDeps(cmd, load, func(ctx context.Context, d *Deps) error {
				if err := d.Allocator.Set(ctx, sequence.PartitionKey(year), value); err != nil {
					if errors.Is(err, sequence.ErrBackwards) {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s counter is already past %d\n", color.New(color.FgRed).Sprint("REFUSED"), value)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s next number is %s\n",
					color.New(color.FgGreen).Sprint("OK"), sequence.Format(d.Prefix, year, value+1))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "business year")
	cmd.Flags().Int64Var(&value, "value", 0, "last issued sequence number")
	return cmd
}
