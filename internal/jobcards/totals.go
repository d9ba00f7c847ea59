package jobcards

import "github.com/shopspring/decimal"

// GrandTotal sums LineTotal across items.
func GrandTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return total
}

// Balance returns grandTotal - amountPaid. It is not clamped: a negative
// balance is an overpayment owed back to the customer.
func Balance(grandTotal, amountPaid decimal.Decimal) decimal.Decimal {
	return grandTotal.Sub(amountPaid)
}

// DeriveStatus is completed iff items is non-empty and every item is done.
func DeriveStatus(items []LineItem) Status {
	if len(items) == 0 {
		return StatusPending
	}
	for _, it := range items {
		if !it.Done {
			return StatusPending
		}
	}
	return StatusCompleted
}

// resolveStatus applies an explicit status, which then sticks until the line
// items change; otherwise the status is derived from the items.
func resolveStatus(card *JobCard, explicit *Status, itemsChanged bool) {
	switch {
	case explicit != nil:
		card.Status = *explicit
		card.StatusOverridden = true
	case itemsChanged || !card.StatusOverridden:
		card.Status = DeriveStatus(card.AllItems())
		card.StatusOverridden = false
	}
}

// applyTotals recomputes every derived amount on card from its items,
// advance and collected payments.
func applyTotals(card *JobCard) {
	card.SparesTotal = GrandTotal(card.Spares)
	card.LaboursTotal = GrandTotal(card.Labours)
	card.GrandTotal = card.SparesTotal.Add(card.LaboursTotal)
	card.AmountPaid = card.AdvancePaid.Add(card.Collected)
	card.Balance = Balance(card.GrandTotal, card.AmountPaid)
}
