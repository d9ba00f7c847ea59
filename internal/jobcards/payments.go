package jobcards

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PaymentSource sums payments recorded against a display id in one register.
type PaymentSource interface {
	Name() string
	SumPayments(ctx context.Context, displayID string) (decimal.Decimal, error)
}

// Reconciler totals payments for a job card across every source. Nothing is
// cached: each call reads the registers afresh, so the result is always
// recoverable from the register entries alone.
type Reconciler struct {
	sources []PaymentSource
}

// NewReconciler constructs a Reconciler over sources.
func NewReconciler(sources ...PaymentSource) *Reconciler {
	return &Reconciler{sources: sources}
}

// ReconcilePayments returns the sum of all entries referencing displayID.
func (r *Reconciler) ReconcilePayments(ctx context.Context, displayID string) (decimal.Decimal, error) {
	if r == nil || displayID == "" || len(r.sources) == 0 {
		return decimal.Zero, nil
	}
	sums := make([]decimal.Decimal, len(r.sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range r.sources {
		g.Go(func() error {
			sum, err := src.SumPayments(ctx, displayID)
			if err != nil {
				return fmt.Errorf("%s payments for %s: %w", src.Name(), displayID, err)
			}
			sums[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, s := range sums {
		total = total.Add(s)
	}
	return total, nil
}
