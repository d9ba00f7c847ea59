package e2e

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jrr-automobiles/portal/internal/jobcards"
	"github.com/jrr-automobiles/portal/internal/registers"
	"github.com/jrr-automobiles/portal/internal/shared"
)

// ============================================================================
// MEMORY JOB CARD STORE
// ============================================================================

type cardStore struct {
	mu     sync.Mutex
	cards  map[int64]jobcards.JobCard
	nextID int64
}

func newCardStore() *cardStore {
	return &cardStore{cards: map[int64]jobcards.JobCard{}, nextID: 1}
}

func (s *cardStore) Insert(_ context.Context, card *jobcards.JobCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.DisplayID == card.DisplayID {
			return jobcards.ErrDisplayIDTaken
		}
	}
	card.ID = s.nextID
	s.nextID++
	card.CreatedAt, card.UpdatedAt = time.Now(), time.Now()
	s.cards[card.ID] = *card
	return nil
}

func (s *cardStore) Update(_ context.Context, card *jobcards.JobCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.ID]; !ok {
		return jobcards.ErrNotFound
	}
	card.UpdatedAt = time.Now()
	s.cards[card.ID] = *card
	return nil
}

func (s *cardStore) UpdatePayments(_ context.Context, id int64, collected decimal.Decimal) (*jobcards.JobCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, jobcards.ErrNotFound
	}
	c.Collected = collected
	c.AmountPaid = c.AdvancePaid.Add(collected)
	c.Balance = c.GrandTotal.Sub(c.AmountPaid)
	s.cards[id] = c
	return &c, nil
}

func (s *cardStore) Delete(_ context.Context, id int64) (*jobcards.JobCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, jobcards.ErrNotFound
	}
	delete(s.cards, id)
	return &c, nil
}

func (s *cardStore) Get(_ context.Context, id int64) (*jobcards.JobCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, jobcards.ErrNotFound
	}
	return &c, nil
}

func (s *cardStore) GetByDisplayID(_ context.Context, displayID string) (*jobcards.JobCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.DisplayID == displayID {
			return &c, nil
		}
	}
	return nil, jobcards.ErrNotFound
}

func (s *cardStore) List(_ context.Context, _ jobcards.ListFilter) ([]jobcards.JobCard, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]jobcards.JobCard, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (s *cardStore) ListDisplayIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.cards))
	for _, c := range s.cards {
		ids = append(ids, c.DisplayID)
	}
	sort.Strings(ids)
	return ids, nil
}

// ============================================================================
// MEMORY REGISTER STORE
// ============================================================================

type dayStore struct {
	mu     sync.Mutex
	days   map[int64]registers.Day
	nextID int64
}

func newDayStore() *dayStore {
	return &dayStore{days: map[int64]registers.Day{}, nextID: 1}
}

func copyDay(d registers.Day) *registers.Day {
	d.Entries = append([]registers.Entry{}, d.Entries...)
	return &d
}

func (s *dayStore) Upsert(_ context.Context, day *registers.Day) ([]registers.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.days {
		if d.Kind == day.Kind && d.Date.Equal(day.Date) {
			day.ID, day.CreatedAt, day.UpdatedAt = id, d.CreatedAt, time.Now()
			s.days[id] = *copyDay(*day)
			return d.Entries, false, nil
		}
	}
	day.ID = s.nextID
	s.nextID++
	day.CreatedAt, day.UpdatedAt = time.Now(), time.Now()
	s.days[day.ID] = *copyDay(*day)
	return nil, true, nil
}

func (s *dayStore) Mutate(_ context.Context, kind registers.Kind, id int64, fn func(*registers.Day) error) (*registers.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[id]
	if !ok || d.Kind != kind {
		return nil, registers.ErrNotFound
	}
	day := copyDay(d)
	if err := fn(day); err != nil {
		return nil, err
	}
	for other, o := range s.days {
		if other != id && o.Kind == kind && o.Date.Equal(day.Date) {
			return nil, registers.ErrDayTaken
		}
	}
	s.days[id] = *copyDay(*day)
	return day, nil
}

func (s *dayStore) Delete(_ context.Context, kind registers.Kind, id int64) (*registers.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[id]
	if !ok || d.Kind != kind {
		return nil, registers.ErrNotFound
	}
	delete(s.days, id)
	return &d, nil
}

func (s *dayStore) Get(_ context.Context, kind registers.Kind, id int64) (*registers.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[id]
	if !ok || d.Kind != kind {
		return nil, registers.ErrNotFound
	}
	return copyDay(d), nil
}

func (s *dayStore) List(_ context.Context, kind registers.Kind, period shared.Period) ([]registers.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []registers.Day{}
	for _, d := range s.days {
		if d.Kind == kind && period.Contains(d.Date) {
			out = append(out, *copyDay(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *dayStore) SumPayments(_ context.Context, kind registers.Kind, displayID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, d := range s.days {
		if d.Kind != kind {
			continue
		}
		for _, e := range d.Entries {
			if e.JobCardNo == displayID {
				sum = sum.Add(e.Amount)
			}
		}
	}
	return sum, nil
}
