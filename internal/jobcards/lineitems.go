package jobcards

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemInput is a line item as submitted by a client. Numeric fields
// accept JSON numbers, numeric strings or null.
type LineItemInput struct {
	ID          string `json:"id,omitempty"`
	Description any    `json:"description"`
	Quantity    any    `json:"quantity"`
	UnitAmount  any    `json:"unit_amount"`
	// Amount is the legacy name for UnitAmount.
	Amount   any `json:"amount,omitempty"`
	Done     any `json:"done,omitempty"`
	Checkbox any `json:"checkbox,omitempty"`
}

// Normalize coerces raw rows into line items in array order. Nothing is
// reordered or dropped; display sequence is 1..N; negative or unparsable
// amounts count as zero. An id repeated within raw is kept on its first row
// only.
func Normalize(raw []LineItemInput) []LineItem {
	items := make([]LineItem, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, in := range raw {
		unit, _ := coerceAmount(firstPresent(in.UnitAmount, in.Amount))
		qty, present := coerceAmount(in.Quantity)
		if !present && unit.IsPositive() {
			qty = decimal.NewFromInt(1)
		}
		items[i] = LineItem{
			ID:          uniqueItemID(in.ID, seen),
			DisplaySeq:  i + 1,
			Description: coerceText(in.Description),
			Quantity:    qty,
			UnitAmount:  unit,
			LineTotal:   LineTotal(qty, unit),
			Done:        coerceBool(in.Done) || coerceBool(in.Checkbox),
		}
	}
	return items
}

// LineTotal returns max(0, quantity*unit) rounded to paise.
func LineTotal(quantity, unit decimal.Decimal) decimal.Decimal {
	total := quantity.Mul(unit)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

// AssignItemIDs gives every item without an id a fresh one.
func AssignItemIDs(items []LineItem) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
}

// ToInputs converts stored items back to inputs so they can be renormalised
// after an edit.
func ToInputs(items []LineItem) []LineItemInput {
	out := make([]LineItemInput, len(items))
	for i, it := range items {
		out[i] = LineItemInput{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitAmount:  it.UnitAmount.String(),
			Done:        it.Done,
		}
	}
	return out
}

// SameItems reports whether a and b hold the same billable content in the
// same order. Ids and derived fields are ignored.
func SameItems(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Description != b[i].Description ||
			!a[i].Quantity.Equal(b[i].Quantity) ||
			!a[i].UnitAmount.Equal(b[i].UnitAmount) ||
			a[i].Done != b[i].Done {
			return false
		}
	}
	return true
}

// uniqueItemID returns id when it is a uuid not yet in seen, and "" otherwise
// so that AssignItemIDs gives the row a fresh one.
func uniqueItemID(id string, seen map[string]struct{}) string {
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	if _, dup := seen[id]; dup {
		return ""
	}
	seen[id] = struct{}{}
	return id
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

// coerceAmount parses v as a non-negative amount. present is false when v was
// missing or blank.
func coerceAmount(v any) (amount decimal.Decimal, present bool) {
	var d decimal.Decimal
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, true
		}
		d = decimal.NewFromFloat(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case json.Number:
		parsed, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, true
		}
		d = parsed
	case decimal.Decimal:
		d = n
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return decimal.Zero, false
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, true
		}
		d = parsed
	default:
		return decimal.Zero, true
	}
	if d.IsNegative() {
		return decimal.Zero, true
	}
	return d, true
}

var errKilometers = errors.New("must be a non-negative number")

// parseKilometers reads an odometer reading. present is false when v is nil
// or blank. Fractions are truncated.
func parseKilometers(v any) (km int64, present bool, err error) {
	var d decimal.Decimal
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, true, errKilometers
		}
		d = decimal.NewFromFloat(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case json.Number:
		if d, err = decimal.NewFromString(n.String()); err != nil {
			return 0, true, errKilometers
		}
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false, nil
		}
		if d, err = decimal.NewFromString(s); err != nil {
			return 0, true, errKilometers
		}
	default:
		return 0, true, errKilometers
	}
	if d.IsNegative() {
		return 0, true, errKilometers
	}
	return d.IntPart(), true, nil
}

func coerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t).String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "on", "done":
			return true
		}
	case float64:
		return b != 0
	}
	return false
}
