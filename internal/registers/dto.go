package registers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
	"github.com/jrr-automobiles/portal/internal/sequence"
)

// DayRequest creates or replaces the record for a day.
type DayRequest struct {
	Date    string       `json:"date" validate:"required"`
	Entries []EntryInput `json:"entries" validate:"required"`
}

// UpdateDayRequest patches a day. A nil Date keeps the date; a nil Entries
// keeps the entries.
type UpdateDayRequest struct {
	Date    *string      `json:"date"`
	Entries []EntryInput `json:"entries"`
}

// EntryInput is an entry as submitted by a client.
type EntryInput struct {
	ID            string `json:"id,omitempty"`
	Sno           any    `json:"sno"`
	Description   string `json:"description"`
	Name          string `json:"name"`
	Vehicle       string `json:"vehicle"`
	RegNo         string `json:"reg_no"`
	MobileNo      string `json:"mobile_no"`
	ServiceType   string `json:"service_type"`
	ModeOfPayment string `json:"mode_of_payment"`
	JobCardNo     string `json:"jobcard_no"`
	Amount        any    `json:"amount"`
}

// EntryPatch edits a single entry. Nil fields are left unchanged.
type EntryPatch struct {
	Sno           any     `json:"sno"`
	Description   *string `json:"description"`
	Name          *string `json:"name"`
	Vehicle       *string `json:"vehicle"`
	RegNo         *string `json:"reg_no"`
	MobileNo      *string `json:"mobile_no"`
	ServiceType   *string `json:"service_type"`
	ModeOfPayment *string `json:"mode_of_payment"`
	JobCardNo     *string `json:"jobcard_no"`
	Amount        any     `json:"amount"`
}

func (p EntryPatch) apply(in *EntryInput) {
	if n, ok := parseSno(p.Sno); ok {
		in.Sno = n
	}
	set := func(src *string, dst *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(p.Description, &in.Description)
	set(p.Name, &in.Name)
	set(p.Vehicle, &in.Vehicle)
	set(p.RegNo, &in.RegNo)
	set(p.MobileNo, &in.MobileNo)
	set(p.ServiceType, &in.ServiceType)
	set(p.ModeOfPayment, &in.ModeOfPayment)
	set(p.JobCardNo, &in.JobCardNo)
	if p.Amount != nil {
		in.Amount = p.Amount
	}
}

func toInput(e Entry) EntryInput {
	return EntryInput{
		ID:            e.ID,
		Sno:           e.Sno,
		Description:   e.Description,
		Name:          e.Name,
		Vehicle:       e.Vehicle,
		RegNo:         e.RegNo,
		MobileNo:      e.MobileNo,
		ServiceType:   e.ServiceType,
		ModeOfPayment: e.ModeOfPayment,
		JobCardNo:     e.JobCardNo,
		Amount:        e.Amount,
	}
}

func toInputs(entries []Entry) []EntryInput {
	out := make([]EntryInput, len(entries))
	for i, e := range entries {
		out[i] = toInput(e)
	}
	return out
}

// normalizeEntries validates and cleans inputs for kind. A positive client
// sno is kept; otherwise the entry is numbered by its position. An entry id
// repeated within inputs is replaced on every row after the first.
func normalizeEntries(kind Kind, inputs []EntryInput) ([]Entry, error) {
	verr := &httpx.ValidationError{}
	entries := make([]Entry, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for i, in := range inputs {
		e := normalizeEntry(kind, in, i, fmt.Sprintf("entries[%d].", i), verr)
		if _, dup := seen[e.ID]; dup {
			e.ID = uuid.NewString()
		}
		seen[e.ID] = struct{}{}
		entries[i] = e
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return entries, nil
}

func normalizeEntry(kind Kind, in EntryInput, idx int, prefix string, verr *httpx.ValidationError) Entry {
	e := Entry{
		ID:            in.ID,
		Description:   strings.TrimSpace(in.Description),
		Name:          strings.TrimSpace(in.Name),
		Vehicle:       strings.TrimSpace(in.Vehicle),
		RegNo:         strings.ToUpper(strings.TrimSpace(in.RegNo)),
		MobileNo:      strings.TrimSpace(in.MobileNo),
		ServiceType:   strings.ToLower(strings.TrimSpace(in.ServiceType)),
		ModeOfPayment: strings.ToLower(strings.TrimSpace(in.ModeOfPayment)),
		JobCardNo:     strings.ToUpper(strings.TrimSpace(in.JobCardNo)),
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		e.ID = uuid.NewString()
	}
	if n, ok := parseSno(in.Sno); ok {
		e.Sno = n
	} else {
		e.Sno = idx + 1
	}

	amount, err := parseAmount(in.Amount)
	if err != nil {
		verr.Add(prefix+"amount", err.Error())
	}
	e.Amount = amount

	switch kind {
	case KindPettyCash:
		if e.Description == "" {
			verr.Add(prefix+"description", "is required")
		}
		e.JobCardNo = ""
	case KindWaterWash:
		if e.Vehicle == "" {
			verr.Add(prefix+"vehicle", "is required")
		}
	}
	if e.JobCardNo != "" && !sequence.Valid(e.JobCardNo) {
		verr.Add(prefix+"jobcard_no", "must be a job card number such as JRR-2025-00001")
	}
	return e
}

// parseSno returns a positive serial number from v.
func parseSno(v any) (int, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

var (
	errNotANumber     = errors.New("must be a number")
	errNegativeAmount = errors.New("must be greater than or equal to 0")
)

// parseAmount reads a non-negative amount. Missing or blank amounts are zero.
func parseAmount(v any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, errNotANumber
		}
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case decimal.Decimal:
		d = t
	case json.Number:
		parsed, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, errNotANumber
		}
		d = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, nil
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, errNotANumber
		}
		d = parsed
	default:
		return decimal.Zero, errNotANumber
	}
	if d.IsNegative() {
		return decimal.Zero, errNegativeAmount
	}
	return d.Round(2), nil
}
