// Package cli implements the portalctl admin commands.
package cli

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jrr-automobiles/portal/internal/registers"
	"github.com/jrr-automobiles/portal/internal/sequence"
	"github.com/jrr-automobiles/portal/internal/shared"
)

// JobCardReconciler recomputes collected payments on job cards.
type JobCardReconciler interface {
	ReconcileDisplayID(ctx context.Context, displayID string) error
	ReconcileAll(ctx context.Context) (int, error)
}

// ReconcileEnqueuer hands reconciliations to the worker instead.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, displayID string) error
	EnqueueReconcileAll(ctx context.Context) error
}

// RegisterSummarizer totals a register over a period.
type RegisterSummarizer interface {
	Summary(ctx context.Context, kind registers.Kind, period shared.Period) (registers.Summary, error)
}

// Deps are the collaborators a command needs. Fields a command does not use
// may be left nil by the loader.
type Deps struct {
	Allocator sequence.Allocator
	JobCards  JobCardReconciler
	Enqueuer  ReconcileEnqueuer
	Registers RegisterSummarizer
	Migrate   func() error
	Location  *time.Location
	Prefix    string
	Now       func() time.Time
}

// Loader connects to the backing stores. The returned func releases them.
type Loader func(ctx context.Context) (*Deps, func(), error)

// NewRootCmd builds the portalctl command tree.
func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Admin tooling for the JRR service portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(MigrateCmd(load))
	root.AddCommand(SequenceCmd(load))
	root.AddCommand(JobCardsCmd(load))
	root.AddCommand(RegistersCmd(load))
	return root
}

func withDeps(cmd *cobra.Command, load Loader, fn func(ctx context.Context, d *Deps) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	deps, release, err := load(ctx)
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return fn(ctx, deps)
}

var printer = message.NewPrinter(language.English)

func money(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}
