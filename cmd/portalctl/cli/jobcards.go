package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jrr-automobiles/portal/internal/sequence"
)

// JobCardsCmd groups job card maintenance commands.
func JobCardsCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobcards",
		Aliases: []string{"jc"},
		Short:   "Job card maintenance",
	}
	cmd.AddCommand(jobCardsReconcileCmd(load))
	return cmd
}

func jobCardsReconcileCmd(load Loader) *cobra.Command {
	var enqueue bool
	cmd := &cobra.Command{
		Use:   "reconcile [display-id]",
		Short: "Recompute collected payments from the registers",
		Long: `Reconcile re-reads the water wash and body shop registers and stores the
collected amount on one job card, or on every job card when no display id is
given. With --enqueue the work is handed to the worker instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var displayID string
			if len(args) == 1 {
				displayID = strings.ToUpper(strings.TrimSpace(args[0]))
				if !sequence.Valid(displayID) {
					return fmt.Errorf("malformed display id %q", args[0])
				}
			}
			return withDeps(cmd, load, func(ctx context.Context, d *Deps) error {
				out := cmd.OutOrStdout()
				ok := color.New(color.FgGreen).Sprint("OK")
				if enqueue {
					if d.Enqueuer == nil {
						return errors.New("reconcile: queue not configured")
					}
					var err error
					if displayID == "" {
						err = d.Enqueuer.EnqueueReconcileAll(ctx)
					} else {
						err = d.Enqueuer.EnqueueReconcile(ctx, displayID)
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s reconcile queued\n", ok)
					return nil
				}
				if displayID != "" {
					if err := d.JobCards.ReconcileDisplayID(ctx, displayID); err != nil {
						return err
					}
					fmt.Fprintf(out, "%s %s reconciled\n", ok, displayID)
					return nil
				}
				n, err := d.JobCards.ReconcileAll(ctx)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %d job cards reconciled before failure\n", color.New(color.FgYellow).Sprint("PARTIAL"), n)
					return err
				}
				fmt.Fprintf(out, "%s %s job cards reconciled\n", ok, printer.Sprintf("%d", n))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "queue the reconciliation for the worker")
	return cmd
}
