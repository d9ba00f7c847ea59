package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jrr-automobiles/portal/internal/registers"
	"github.com/jrr-automobiles/portal/internal/shared"
)

// RegistersCmd groups register reporting commands.
func RegistersCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registers",
		Short: "Daily register reports",
	}
	cmd.AddCommand(registersSummaryCmd(load))
	return cmd
}

func registersSummaryCmd(load Loader) *cobra.Command {
	var kindFlag, from, to string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total a register over a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := registers.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			return withDeps(cmd, load, func(ctx context.Context, d *Deps) error {
				period, err := shared.ParsePeriod(from, to, d.Location)
				if err != nil {
					return err
				}
				sum, err := d.Registers.Summary(ctx, kind, period)
				if err != nil {
					return err
				}
				printSummary(cmd, sum)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", "", "register kind: pettycash, waterwash or bodyshop")
	cmd.Flags().StringVar(&from, "from", "", "first day, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "last day, inclusive")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func printSummary(cmd *cobra.Command, s registers.Summary) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	fmt.Fprintf(out, "%s %s\n", bold.Sprint("Register:"), s.Kind)
	fmt.Fprintf(out, "Range: %s to %s\n", dayOrOpen(s.From), dayOrOpen(s.To))
	fmt.Fprintf(out, "Days: %d  Entries: %d\n", s.Days, s.Entries)

	modes := make([]string, 0, len(s.ByMode))
	for m := range s.ByMode {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	for _, m := range modes {
		fmt.Fprintf(out, "  %-12s %14s\n", m, money(s.ByMode[m]))
	}
	fmt.Fprintf(out, "%s %s\n", bold.Sprint("Total:"), money(s.Total))
}

func dayOrOpen(t *time.Time) string {
	if t == nil {
		return "(open)"
	}
	return t.Format("2006-01-02")
}
