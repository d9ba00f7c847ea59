package jobcards

import (
	"strings"
	"time"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
	"github.com/jrr-automobiles/portal/internal/shared"
)

// CreateRequest is the payload for creating a job card. Display id and all
// totals are assigned by the server and never read from the client.
type CreateRequest struct {
	Date         string          `json:"date"`
	Name         string          `json:"name" validate:"required,max=200"`
	Email        string          `json:"email" validate:"omitempty,email"`
	MobileNo     string          `json:"mobileno" validate:"required,max=20"`
	Address      string          `json:"address" validate:"max=500"`
	RegNo        string          `json:"regno" validate:"required,max=20"`
	VehicleModel string          `json:"vehicle_model" validate:"required,max=100"`
	Brand        string          `json:"brand" validate:"max=100"`
	FuelType     string          `json:"fuel_type" validate:"omitempty,oneof=petrol diesel ev cng"`
	Kilometers   any             `json:"kilometers"`
	Remarks      string          `json:"remarks" validate:"max=2000"`
	Spares       []LineItemInput `json:"spares"`
	Labours      []LineItemInput `json:"labours"`
	AdvancePaid  any             `json:"advance_paid"`
	Status       *Status         `json:"status" validate:"omitempty,oneof=pending completed"`
}

func (r *CreateRequest) trim() {
	r.Date = strings.TrimSpace(r.Date)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.MobileNo = strings.TrimSpace(r.MobileNo)
	r.Address = strings.TrimSpace(r.Address)
	r.RegNo = strings.ToUpper(strings.TrimSpace(r.RegNo))
	r.VehicleModel = strings.TrimSpace(r.VehicleModel)
	r.Brand = strings.TrimSpace(r.Brand)
	r.FuelType = strings.ToLower(strings.TrimSpace(r.FuelType))
	r.Remarks = strings.TrimSpace(r.Remarks)
}

// UpdateRequest patches a job card. Nil fields are left unchanged; a non-nil
// spares or labours slice replaces that group.
type UpdateRequest struct {
	Date         *string         `json:"date"`
	Name         *string         `json:"name"`
	Email        *string         `json:"email"`
	MobileNo     *string         `json:"mobileno"`
	Address      *string         `json:"address"`
	RegNo        *string         `json:"regno"`
	VehicleModel *string         `json:"vehicle_model"`
	Brand        *string         `json:"brand"`
	FuelType     *string         `json:"fuel_type"`
	Kilometers   any             `json:"kilometers"`
	Remarks      *string         `json:"remarks"`
	Spares       []LineItemInput `json:"spares"`
	Labours      []LineItemInput `json:"labours"`
	AdvancePaid  any             `json:"advance_paid"`
	Status       *Status         `json:"status" validate:"omitempty,oneof=pending completed"`
}

// ItemPatch edits a single line item. Nil fields are left unchanged.
type ItemPatch struct {
	Description any `json:"description"`
	Quantity    any `json:"quantity"`
	UnitAmount  any `json:"unit_amount"`
	Done        any `json:"done"`
}

func (p ItemPatch) apply(in *LineItemInput) {
	if p.Description != nil {
		in.Description = p.Description
	}
	if p.Quantity != nil {
		in.Quantity = p.Quantity
	}
	if p.UnitAmount != nil {
		in.UnitAmount = p.UnitAmount
	}
	if p.Done != nil {
		in.Done = p.Done
	}
}

// parseBusinessDate resolves the card's calendar date in the shop timezone.
func parseBusinessDate(s string, loc *time.Location, now time.Time) (time.Time, error) {
	day, err := shared.ParseDay(s, loc, now)
	if err != nil {
		return time.Time{}, httpx.NewValidationError("date", err.Error())
	}
	return day, nil
}
