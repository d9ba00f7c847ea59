package registers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
	"github.com/jrr-automobiles/portal/internal/shared"
)

// Repository persists register days.
type Repository interface {
	// Upsert stores day under (kind, date), replacing the entries of an
	// existing record. It fills ID and timestamps and returns the entries
	// that were replaced.
	Upsert(ctx context.Context, day *Day) (replaced []Entry, created bool, err error)
	// Mutate loads the day under a row lock, applies fn and stores the
	// result. It returns ErrDayTaken when fn moves the day onto a date that
	// is already recorded.
	Mutate(ctx context.Context, kind Kind, id int64, fn func(*Day) error) (*Day, error)
	Delete(ctx context.Context, kind Kind, id int64) (*Day, error)
	Get(ctx context.Context, kind Kind, id int64) (*Day, error)
	// List returns days within period, newest first.
	List(ctx context.Context, kind Kind, period shared.Period) ([]Day, error)
	// SumPayments totals the amounts of entries that reference displayID.
	SumPayments(ctx context.Context, kind Kind, displayID string) (decimal.Decimal, error)
}

// JobCardNotifier is told which job cards were referenced by entries before
// or after a write so their payments can be reconciled.
type JobCardNotifier interface {
	JobCardsTouched(ctx context.Context, displayIDs []string) error
}

// ServiceConfig collects optional collaborators.
type ServiceConfig struct {
	Location *time.Location
	Logger   *slog.Logger
	Notifier JobCardNotifier
	Now      func() time.Time
}

// Service manages register days and their entries.
type Service struct {
	repo      Repository
	validator *httpx.Validator
	loc       *time.Location
	logger    *slog.Logger
	notifier  JobCardNotifier
	now       func() time.Time
}

// NewService constructs the service.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	s := &Service{
		repo:      repo,
		validator: httpx.NewValidator(),
		loc:       cfg.Location,
		logger:    cfg.Logger,
		notifier:  cfg.Notifier,
		now:       cfg.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Location returns the timezone days are resolved in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// CreateDay records entries for the request's date. If the day already
// exists its entries are replaced.
func (s *Service) CreateDay(ctx context.Context, kind Kind, req DayRequest) (*Day, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, err
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, false, err
	}
	entries, err := normalizeEntries(kind, req.Entries)
	if err != nil {
		return nil, false, err
	}
	day := &Day{Kind: kind, Date: date, Entries: entries, TotalDailyAmount: DailyTotal(entries)}
	replaced, created, err := s.repo.Upsert(ctx, day)
	if err != nil {
		return nil, false, fmt.Errorf("store %s day: %w", kind, err)
	}
	s.logger.Info("register day saved",
		slog.String("kind", string(kind)),
		slog.String("date", date.Format(time.DateOnly)),
		slog.Bool("created", created),
		slog.Int("entries", len(entries)))
	s.notify(ctx, kind, replaced, day.Entries)
	return day, created, nil
}

// UpdateDay moves the day and/or replaces its entries.
func (s *Service) UpdateDay(ctx context.Context, kind Kind, id int64, req UpdateDayRequest) (*Day, error) {
	var date *time.Time
	if req.Date != nil {
		d, err := s.parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		date = &d
	}
	var entries []Entry
	if req.Entries != nil {
		var err error
		if entries, err = normalizeEntries(kind, req.Entries); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, kind, id, func(day *Day) error {
		if date != nil {
			day.Date = *date
		}
		if req.Entries != nil {
			day.Entries = entries
		}
		return nil
	})
}

// DeleteDay removes a day with all its entries.
func (s *Service) DeleteDay(ctx context.Context, kind Kind, id int64) (*Day, error) {
	day, err := s.repo.Delete(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("register day deleted",
		slog.String("kind", string(kind)),
		slog.String("date", day.Date.Format(time.DateOnly)))
	s.notify(ctx, kind, day.Entries, nil)
	return day, nil
}

// GetDay returns a day by id.
func (s *Service) GetDay(ctx context.Context, kind Kind, id int64) (*Day, error) {
	return s.repo.Get(ctx, kind, id)
}

// ListDays returns the days within the inclusive period, newest first.
func (s *Service) ListDays(ctx context.Context, kind Kind, period shared.Period) ([]Day, error) {
	return s.repo.List(ctx, kind, period)
}

// Summary totals a register over period.
func (s *Service) Summary(ctx context.Context, kind Kind, period shared.Period) (Summary, error) {
	days, err := s.repo.List(ctx, kind, period)
	if err != nil {
		return Summary{}, err
	}
	summary := Summarize(kind, days)
	summary.From, summary.To = period.From, period.To
	return summary, nil
}

// AddEntry appends an entry to a day. Without a positive sno the entry is
// numbered one past the highest existing sno.
func (s *Service) AddEntry(ctx context.Context, kind Kind, id int64, in EntryInput) (*Day, error) {
	in.ID = ""
	return s.mutate(ctx, kind, id, func(day *Day) error {
		if _, ok := parseSno(in.Sno); !ok {
			in.Sno = maxSno(day.Entries) + 1
		}
		verr := &httpx.ValidationError{}
		entry := normalizeEntry(kind, in, len(day.Entries), "", verr)
		if err := verr.OrNil(); err != nil {
			return err
		}
		day.Entries = append(day.Entries, entry)
		return nil
	})
}

// UpdateEntry patches one entry of a day.
func (s *Service) UpdateEntry(ctx context.Context, kind Kind, id int64, entryID string, patch EntryPatch) (*Day, error) {
	return s.mutate(ctx, kind, id, func(day *Day) error {
		i := indexOf(day.Entries, entryID)
		if i < 0 {
			return ErrEntryNotFound
		}
		in := toInput(day.Entries[i])
		patch.apply(&in)
		verr := &httpx.ValidationError{}
		entry := normalizeEntry(kind, in, i, "", verr)
		if err := verr.OrNil(); err != nil {
			return err
		}
		day.Entries[i] = entry
		return nil
	})
}

// DeleteEntry removes one entry of a day.
func (s *Service) DeleteEntry(ctx context.Context, kind Kind, id int64, entryID string) (*Day, error) {
	return s.mutate(ctx, kind, id, func(day *Day) error {
		i := indexOf(day.Entries, entryID)
		if i < 0 {
			return ErrEntryNotFound
		}
		day.Entries = append(day.Entries[:i], day.Entries[i+1:]...)
		return nil
	})
}

// mutate runs fn against the stored day, recomputes its total and notifies
// about job cards referenced before or after.
func (s *Service) mutate(ctx context.Context, kind Kind, id int64, fn func(*Day) error) (*Day, error) {
	var before []Entry
	day, err := s.repo.Mutate(ctx, kind, id, func(day *Day) error {
		before = append([]Entry(nil), day.Entries...)
		if err := fn(day); err != nil {
			return err
		}
		day.TotalDailyAmount = DailyTotal(day.Entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, kind, before, day.Entries)
	return day, nil
}

func (s *Service) notify(ctx context.Context, kind Kind, before, after []Entry) {
	if s.notifier == nil || !kind.CollectsPayments() {
		return
	}
	ids := JobCardNumbers(before, after)
	if len(ids) == 0 {
		return
	}
	if err := s.notifier.JobCardsTouched(ctx, ids); err != nil {
		s.logger.Warn("job card reconcile not scheduled",
			slog.String("kind", string(kind)),
			slog.Any("display_ids", ids),
			slog.Any("error", err))
	}
}

func (s *Service) parseDate(v string) (time.Time, error) {
	day, err := shared.ParseDay(v, s.loc, s.now())
	if err != nil {
		if errors.Is(err, shared.ErrInvalidDate) {
			return time.Time{}, httpx.NewValidationError("date", err.Error())
		}
		return time.Time{}, err
	}
	return day, nil
}

func maxSno(entries []Entry) int {
	m := 0
	for _, e := range entries {
		if e.Sno > m {
			m = e.Sno
		}
	}
	return m
}

func indexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
