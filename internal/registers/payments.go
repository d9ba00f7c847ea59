package registers

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentSource reads the payments one register holds against job cards.
type PaymentSource struct {
	repo Repository
	kind Kind
}

// PaymentSources returns a source for every register that collects payments.
func PaymentSources(repo Repository) []*PaymentSource {
	var out []*PaymentSource
	for _, k := range Kinds {
		if k.CollectsPayments() {
			out = append(out, &PaymentSource{repo: repo, kind: k})
		}
	}
	return out
}

// Name identifies the register.
func (p *PaymentSource) Name() string { return string(p.kind) }

// SumPayments totals entries referencing displayID.
func (p *PaymentSource) SumPayments(ctx context.Context, displayID string) (decimal.Decimal, error) {
	return p.repo.SumPayments(ctx, p.kind, displayID)
}
