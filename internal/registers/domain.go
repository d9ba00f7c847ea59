// Package registers keeps the daily collection registers: petty cash
// expenses, water wash receipts and body shop receipts. Each register holds
// one record per calendar day with its entries embedded.
package registers

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when a register day does not exist.
	ErrNotFound = fmt.Errorf("register day: %w", httpx.ErrNotFound)
	// ErrEntryNotFound is returned when an entry id is unknown on a day.
	ErrEntryNotFound = fmt.Errorf("register entry: %w", httpx.ErrNotFound)
	// ErrDayTaken is returned when moving a day onto a date that already has
	// a record in the same register.
	ErrDayTaken = fmt.Errorf("register day: date already recorded: %w", httpx.ErrConflict)
)

// Kind names a register.
type Kind string

const (
	KindPettyCash Kind = "pettycash"
	KindWaterWash Kind = "waterwash"
	KindBodyShop  Kind = "bodyshop"
)

// Kinds lists every register.
var Kinds = []Kind{KindPettyCash, KindWaterWash, KindBodyShop}

// ParseKind validates a register name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindPettyCash, KindWaterWash, KindBodyShop:
		return k, nil
	}
	return "", httpx.NewValidationError("kind", "must be one of [pettycash waterwash bodyshop]")
}

// CollectsPayments reports whether entries in the register are customer
// payments that count towards job cards. Petty cash is an expense book.
func (k Kind) CollectsPayments() bool {
	return k == KindWaterWash || k == KindBodyShop
}

// Entry is one line of a register day.
type Entry struct {
	ID            string          `json:"id"`
	Sno           int             `json:"sno"`
	Description   string          `json:"description,omitempty"`
	Name          string          `json:"name,omitempty"`
	Vehicle       string          `json:"vehicle,omitempty"`
	RegNo         string          `json:"reg_no,omitempty"`
	MobileNo      string          `json:"mobile_no,omitempty"`
	ServiceType   string          `json:"service_type,omitempty"`
	ModeOfPayment string          `json:"mode_of_payment,omitempty"`
	JobCardNo     string          `json:"jobcard_no,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// Day is the record of one register for one calendar day.
type Day struct {
	ID               int64           `json:"id"`
	Kind             Kind            `json:"kind"`
	Date             time.Time       `json:"date"`
	Entries          []Entry         `json:"entries"`
	TotalDailyAmount decimal.Decimal `json:"total_daily_amount"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DailyTotal sums entry amounts.
func DailyTotal(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// JobCardNumbers returns the distinct job card numbers referenced by
// entries, sorted.
func JobCardNumbers(entries ...[]Entry) []string {
	seen := map[string]struct{}{}
	for _, list := range entries {
		for _, e := range list {
			if e.JobCardNo != "" {
				seen[e.JobCardNo] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for no := range seen {
		out = append(out, no)
	}
	sort.Strings(out)
	return out
}

// Summary aggregates a register over a range of days.
type Summary struct {
	Kind    Kind                       `json:"kind"`
	From    *time.Time                 `json:"from,omitempty"`
	To      *time.Time                 `json:"to,omitempty"`
	Days    int                        `json:"days"`
	Entries int                        `json:"entries"`
	Total   decimal.Decimal            `json:"total"`
	ByMode  map[string]decimal.Decimal `json:"by_mode"`
}

// Summarize totals days. Entries without a mode of payment are grouped
// under "unspecified".
func Summarize(kind Kind, days []Day) Summary {
	s := Summary{Kind: kind, Total: decimal.Zero, ByMode: map[string]decimal.Decimal{}}
	for _, d := range days {
		s.Days++
		s.Entries += len(d.Entries)
		s.Total = s.Total.Add(d.TotalDailyAmount)
		for _, e := range d.Entries {
			mode := strings.ToLower(e.ModeOfPayment)
			if mode == "" {
				mode = "unspecified"
			}
			s.ByMode[mode] = s.ByMode[mode].Add(e.Amount)
		}
	}
	return s
}
