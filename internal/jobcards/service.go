package jobcards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
	"github.com/jrr-automobiles/portal/internal/sequence"
)

// maxCreateAttempts bounds display id allocation when inserts collide.
const maxCreateAttempts = 3

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Repository persists job cards.
type Repository interface {
	// Insert stores card and fills ID and timestamps. It returns
	// ErrDisplayIDTaken when the display id is already used.
	Insert(ctx context.Context, card *JobCard) error
	Update(ctx context.Context, card *JobCard) error
	// UpdatePayments stores collected and recomputes amount paid and balance
	// from the stored totals, leaving every other column untouched.
	UpdatePayments(ctx context.Context, id int64, collected decimal.Decimal) (*JobCard, error)
	Delete(ctx context.Context, id int64) (*JobCard, error)
	Get(ctx context.Context, id int64) (*JobCard, error)
	GetByDisplayID(ctx context.Context, displayID string) (*JobCard, error)
	List(ctx context.Context, filter ListFilter) ([]JobCard, int, error)
	ListDisplayIDs(ctx context.Context) ([]string, error)
}

// Recorder receives lifecycle metrics.
type Recorder interface {
	IdentifierConflict()
	Reconciled(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) IdentifierConflict() {}
func (noopRecorder) Reconciled(string)   {}

// ServiceConfig collects optional collaborators.
type ServiceConfig struct {
	Location *time.Location
	Logger   *slog.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Service orchestrates the job card lifecycle.
type Service struct {
	repo      Repository
	issuer    *sequence.Issuer
	payments  *Reconciler
	validator *httpx.Validator
	loc       *time.Location
	logger    *slog.Logger
	recorder  Recorder
	now       func() time.Time
	flight    singleflight.Group
}

// NewService constructs the service.
func NewService(repo Repository, issuer *sequence.Issuer, payments *Reconciler, cfg ServiceConfig) *Service {
	s := &Service{
		repo:      repo,
		issuer:    issuer,
		payments:  payments,
		validator: httpx.NewValidator(),
		loc:       cfg.Location,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
		now:       cfg.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create validates req, numbers the card and stores it. Validation happens
// before any number is allocated.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*JobCard, error) {
	req.trim()
	verr := &httpx.ValidationError{}
	if err := s.validator.Struct(req); err != nil {
		var fields *httpx.ValidationError
		if !errors.As(err, &fields) {
			return nil, err
		}
		verr = fields
	}
	date, err := parseBusinessDate(req.Date, s.loc, s.now())
	if err != nil {
		verr.Add("date", "must be YYYY-MM-DD or DD-MM-YYYY")
	}
	km, _, err := parseKilometers(req.Kilometers)
	if err != nil {
		verr.Add("kilometers", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	advance, _ := coerceAmount(req.AdvancePaid)

	card := &JobCard{
		Date:         date,
		CustomerName: req.Name,
		Email:        req.Email,
		MobileNo:     req.MobileNo,
		Address:      req.Address,
		RegNo:        req.RegNo,
		VehicleModel: req.VehicleModel,
		Brand:        req.Brand,
		FuelType:     req.FuelType,
		Kilometers:   km,
		Remarks:      req.Remarks,
		Spares:       Normalize(req.Spares),
		Labours:      Normalize(req.Labours),
		AdvancePaid:  advance.Round(2),
		Collected:    decimal.Zero,
	}
	AssignItemIDs(card.Spares)
	AssignItemIDs(card.Labours)
	resolveStatus(card, req.Status, true)
	applyTotals(card)

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		displayID, err := s.issuer.Issue(ctx, card.Date.Year())
		if err != nil {
			return nil, fmt.Errorf("allocate job card number: %w", err)
		}
		card.DisplayID = displayID
		err = s.repo.Insert(ctx, card)
		if err == nil {
			s.logger.Info("job card created",
				slog.String("display_id", card.DisplayID),
				slog.Int64("id", card.ID),
				slog.String("grand_total", card.GrandTotal.StringFixed(2)))
			return card, nil
		}
		if !errors.Is(err, ErrDisplayIDTaken) {
			return nil, fmt.Errorf("insert job card: %w", err)
		}
		s.recorder.IdentifierConflict()
		s.logger.Warn("job card number collision",
			slog.String("display_id", displayID),
			slog.Int("attempt", attempt))
		card.DisplayID = ""
	}
	return nil, ErrIdentifierConflict
}

// Update applies req to the card. The display id never changes.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*JobCard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	card, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyPatch(card, req); err != nil {
		return nil, err
	}

	itemsChanged := false
	if req.Spares != nil {
		next := Normalize(req.Spares)
		itemsChanged = itemsChanged || !SameItems(card.Spares, next)
		card.Spares = next
	}
	if req.Labours != nil {
		next := Normalize(req.Labours)
		itemsChanged = itemsChanged || !SameItems(card.Labours, next)
		card.Labours = next
	}
	AssignItemIDs(card.Spares)
	AssignItemIDs(card.Labours)
	resolveStatus(card, req.Status, itemsChanged)

	return s.save(ctx, card)
}

func (s *Service) applyPatch(card *JobCard, req UpdateRequest) error {
	verr := &httpx.ValidationError{}
	setRequired := func(field string, src *string, dst *string, upper bool) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if upper {
			v = strings.ToUpper(v)
		}
		if v == "" {
			verr.Add(field, "is required")
			return
		}
		*dst = v
	}
	setOptional := func(src *string, dst *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}

	setRequired("name", req.Name, &card.CustomerName, false)
	setRequired("mobileno", req.MobileNo, &card.MobileNo, false)
	setRequired("regno", req.RegNo, &card.RegNo, true)
	setRequired("vehicle_model", req.VehicleModel, &card.VehicleModel, false)
	setOptional(req.Email, &card.Email)
	setOptional(req.Address, &card.Address)
	setOptional(req.Brand, &card.Brand)
	setOptional(req.Remarks, &card.Remarks)

	if req.FuelType != nil {
		fuel := strings.ToLower(strings.TrimSpace(*req.FuelType))
		switch fuel {
		case "", "petrol", "diesel", "ev", "cng":
			card.FuelType = fuel
		default:
			verr.Add("fuel_type", "must be one of [petrol diesel ev cng]")
		}
	}
	if req.Date != nil {
		date, err := parseBusinessDate(*req.Date, s.loc, s.now())
		if err != nil {
			verr.Add("date", "must be YYYY-MM-DD or DD-MM-YYYY")
		} else {
			card.Date = date
		}
	}
	if km, present, err := parseKilometers(req.Kilometers); err != nil {
		verr.Add("kilometers", err.Error())
	} else if present {
		card.Kilometers = km
	}
	if req.AdvancePaid != nil {
		advance, _ := coerceAmount(req.AdvancePaid)
		card.AdvancePaid = advance.Round(2)
	}
	return verr.OrNil()
}

// save reconciles payments, recomputes totals and persists card.
func (s *Service) save(ctx context.Context, card *JobCard) (*JobCard, error) {
	collected, err := s.payments.ReconcilePayments(ctx, card.DisplayID)
	if err != nil {
		s.recorder.Reconciled("error")
		return nil, fmt.Errorf("reconcile payments: %w", err)
	}
	s.recorder.Reconciled("ok")
	card.Collected = collected
	applyTotals(card)
	if err := s.repo.Update(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// Delete removes the card. Its number is not reclaimed and register entries
// that reference it are left as they are.
func (s *Service) Delete(ctx context.Context, id int64) (*JobCard, error) {
	card, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job card deleted", slog.String("display_id", card.DisplayID), slog.Int64("id", id))
	return card, nil
}

// Get returns a card by id.
func (s *Service) Get(ctx context.Context, id int64) (*JobCard, error) {
	return s.repo.Get(ctx, id)
}

// GetByDisplayID returns a card by its display id.
func (s *Service) GetByDisplayID(ctx context.Context, displayID string) (*JobCard, error) {
	displayID = strings.ToUpper(strings.TrimSpace(displayID))
	if !sequence.Valid(displayID) {
		return nil, httpx.NewValidationError("display_id", "must look like "+sequence.Format(s.issuer.Prefix(), s.now().In(s.loc).Year(), 1))
	}
	return s.repo.GetByDisplayID(ctx, displayID)
}

// List returns cards newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JobCard, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// AddItem appends a line item to group.
func (s *Service) AddItem(ctx context.Context, id int64, group Group, in LineItemInput) (*JobCard, error) {
	return s.editItems(ctx, id, group, func(inputs []LineItemInput) ([]LineItemInput, error) {
		in.ID = ""
		return append(inputs, in), nil
	})
}

// UpdateItem patches the line item itemID in group.
func (s *Service) UpdateItem(ctx context.Context, id int64, group Group, itemID string, patch ItemPatch) (*JobCard, error) {
	return s.editItems(ctx, id, group, func(inputs []LineItemInput) ([]LineItemInput, error) {
		for i := range inputs {
			if inputs[i].ID == itemID {
				patch.apply(&inputs[i])
				return inputs, nil
			}
		}
		return nil, ErrItemNotFound
	})
}

// DeleteItem removes the line item itemID from group.
func (s *Service) DeleteItem(ctx context.Context, id int64, group Group, itemID string) (*JobCard, error) {
	return s.editItems(ctx, id, group, func(inputs []LineItemInput) ([]LineItemInput, error) {
		for i := range inputs {
			if inputs[i].ID == itemID {
				return append(inputs[:i], inputs[i+1:]...), nil
			}
		}
		return nil, ErrItemNotFound
	})
}

func (s *Service) editItems(ctx context.Context, id int64, group Group, edit func([]LineItemInput) ([]LineItemInput, error)) (*JobCard, error) {
	card, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inputs, err := edit(ToInputs(card.Items(group)))
	if err != nil {
		return nil, err
	}
	items := Normalize(inputs)
	AssignItemIDs(items)
	changed := !SameItems(card.Items(group), items)
	card.SetItems(group, items)
	resolveStatus(card, nil, changed)
	return s.save(ctx, card)
}

// Reconcile refreshes the payments collected for the card with id.
func (s *Service) Reconcile(ctx context.Context, id int64) (*JobCard, error) {
	card, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reconcileCard(ctx, card)
}

func (s *Service) reconcileCard(ctx context.Context, card *JobCard) (*JobCard, error) {
	collected, err := s.payments.ReconcilePayments(ctx, card.DisplayID)
	if err != nil {
		s.recorder.Reconciled("error")
		return nil, fmt.Errorf("reconcile payments: %w", err)
	}
	s.recorder.Reconciled("ok")
	if collected.Equal(card.Collected) {
		return card, nil
	}
	return s.repo.UpdatePayments(ctx, card.ID, collected)
}

// ReconcileDisplayID refreshes payments for the card numbered displayID.
// Unknown numbers are ignored since register entries may reference cards that
// were deleted or mistyped. Concurrent calls for the same number share one
// reconciliation.
func (s *Service) ReconcileDisplayID(ctx context.Context, displayID string) error {
	displayID = strings.ToUpper(strings.TrimSpace(displayID))
	ch := s.flight.DoChan(displayID, func() (interface{}, error) {
		// Shared by every waiter, so one caller going away must not cancel it.
		ctx := context.WithoutCancel(ctx)
		card, err := s.repo.GetByDisplayID(ctx, displayID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.logger.Debug("reconcile skipped, unknown job card", slog.String("display_id", displayID))
				return nil, nil
			}
			return nil, err
		}
		return s.reconcileCard(ctx, card)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// ReconcileAll refreshes payments on every card and reports how many were
// processed. Failures on individual cards do not stop the sweep.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListDisplayIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list job card numbers: %w", err)
	}
	var errs []error
	done := 0
	for _, displayID := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := s.ReconcileDisplayID(ctx, displayID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", displayID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}
