package registers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jrr-automobiles/portal/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	mu     sync.Mutex
	days   map[int64]*Day
	nextID int64

	upsertErr error
	sumErr    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{days: make(map[int64]*Day), nextID: 1}
}

func cloneDay(d *Day) *Day {
	c := *d
	c.Entries = append([]Entry{}, d.Entries...)
	return &c
}

func (m *mockRepository) Upsert(ctx context.Context, day *Day) ([]Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, false, m.upsertErr
	}
	now := time.Now()
	for _, d := range m.days {
		if d.Kind == day.Kind && d.Date.Equal(day.Date) {
			replaced := d.Entries
			d.Entries = append([]Entry{}, day.Entries...)
			d.TotalDailyAmount = day.TotalDailyAmount
			d.UpdatedAt = now
			day.ID, day.CreatedAt, day.UpdatedAt = d.ID, d.CreatedAt, d.UpdatedAt
			return replaced, false, nil
		}
	}
	day.ID = m.nextID
	m.nextID++
	day.CreatedAt, day.UpdatedAt = now, now
	m.days[day.ID] = cloneDay(day)
	return []Entry{}, true, nil
}

func (m *mockRepository) Mutate(ctx context.Context, kind Kind, id int64, fn func(*Day) error) (*Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.days[id]
	if !ok || stored.Kind != kind {
		return nil, ErrNotFound
	}
	day := cloneDay(stored)
	if err := fn(day); err != nil {
		return nil, err
	}
	for otherID, d := range m.days {
		if otherID != id && d.Kind == kind && d.Date.Equal(day.Date) {
			return nil, ErrDayTaken
		}
	}
	day.UpdatedAt = time.Now()
	m.days[id] = cloneDay(day)
	return day, nil
}

func (m *mockRepository) Delete(ctx context.Context, kind Kind, id int64) (*Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.days[id]
	if !ok || d.Kind != kind {
		return nil, ErrNotFound
	}
	delete(m.days, id)
	return d, nil
}

func (m *mockRepository) Get(ctx context.Context, kind Kind, id int64) (*Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.days[id]
	if !ok || d.Kind != kind {
		return nil, ErrNotFound
	}
	return cloneDay(d), nil
}

func (m *mockRepository) List(ctx context.Context, kind Kind, period shared.Period) ([]Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Day{}
	for _, d := range m.days {
		if d.Kind == kind && period.Contains(d.Date) {
			out = append(out, *cloneDay(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockRepository) SumPayments(ctx context.Context, kind Kind, displayID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sumErr != nil {
		return decimal.Zero, m.sumErr
	}
	sum := decimal.Zero
	for _, d := range m.days {
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

// ============================================================================
// MOCK NOTIFIER
// ============================================================================

type mockNotifier struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (n *mockNotifier) JobCardsTouched(ctx context.Context, ids []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, ids)
	return n.err
}

func (n *mockNotifier) last() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return nil
	}
	return n.calls[len(n.calls)-1]
}
