// Package jobcards manages repair orders: numbering, line item normalisation,
// totals and reconciliation of payments recorded in the collection registers.
package jobcards

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when a job card does not exist.
	ErrNotFound = fmt.Errorf("job card: %w", httpx.ErrNotFound)
	// ErrIdentifierConflict is returned when no unique display id could be
	// stored within maxCreateAttempts.
	ErrIdentifierConflict = fmt.Errorf("job card: could not allocate a unique number after retries: %w", httpx.ErrConflict)
	// ErrItemNotFound is returned when a line item id is unknown.
	ErrItemNotFound = fmt.Errorf("line item: %w", httpx.ErrNotFound)
	// ErrDisplayIDTaken is reported by repositories when the display id
	// unique constraint rejects an insert.
	ErrDisplayIDTaken = errors.New("job card: display id already taken")
)

// Status of a job card.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Group names a line item collection on a job card.
type Group string

const (
	GroupSpares  Group = "spares"
	GroupLabours Group = "labours"
)

// ParseGroup validates a group path segment.
func ParseGroup(s string) (Group, error) {
	switch Group(s) {
	case GroupSpares, GroupLabours:
		return Group(s), nil
	case "labour":
		return GroupLabours, nil
	}
	return "", httpx.NewValidationError("group", "must be one of [spares labours]")
}

// LineItem is one billable row. DisplaySeq and LineTotal are always computed
// by the server.
type LineItem struct {
	ID          string          `json:"id"`
	DisplaySeq  int             `json:"display_seq"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Done        bool            `json:"done"`
}

// JobCard is a repair order.
type JobCard struct {
	ID               int64           `json:"id"`
	DisplayID        string          `json:"display_id"`
	Date             time.Time       `json:"date"`
	CustomerName     string          `json:"name"`
	Email            string          `json:"email,omitempty"`
	MobileNo         string          `json:"mobileno"`
	Address          string          `json:"address,omitempty"`
	RegNo            string          `json:"regno"`
	VehicleModel     string          `json:"vehicle_model"`
	Brand            string          `json:"brand,omitempty"`
	FuelType         string          `json:"fuel_type,omitempty"`
	Kilometers       int64           `json:"kilometers"`
	Remarks          string          `json:"remarks,omitempty"`
	Spares           []LineItem      `json:"spares"`
	Labours          []LineItem      `json:"labours"`
	SparesTotal      decimal.Decimal `json:"spares_total"`
	LaboursTotal     decimal.Decimal `json:"labours_total"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	AdvancePaid      decimal.Decimal `json:"advance_paid"`
	Collected        decimal.Decimal `json:"collected"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	Balance          decimal.Decimal `json:"balance"`
	Status           Status          `json:"status"`
	StatusOverridden bool            `json:"status_overridden"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Items returns the line items in group.
func (c *JobCard) Items(g Group) []LineItem {
	if g == GroupLabours {
		return c.Labours
	}
	return c.Spares
}

// SetItems replaces the line items in group.
func (c *JobCard) SetItems(g Group, items []LineItem) {
	if g == GroupLabours {
		c.Labours = items
		return
	}
	c.Spares = items
}

// AllItems returns spares followed by labours.
func (c *JobCard) AllItems() []LineItem {
	all := make([]LineItem, 0, len(c.Spares)+len(c.Labours))
	all = append(all, c.Spares...)
	return append(all, c.Labours...)
}

// ListFilter narrows List results.
type ListFilter struct {
	Status   *Status
	RegNo    string
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}
