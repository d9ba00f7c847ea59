package jobcards

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	mu     sync.Mutex
	cards  map[int64]*JobCard
	nextID int64

	// collide makes the next N inserts fail with ErrDisplayIDTaken.
	collide   int
	insertErr error
	inserts   int
	updates   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{cards: make(map[int64]*JobCard), nextID: 1}
}

func cloneCard(c *JobCard) *JobCard {
	out := *c
	out.Spares = append([]LineItem{}, c.Spares...)
	out.Labours = append([]LineItem{}, c.Labours...)
	return &out
}

func (m *mockRepository) Insert(ctx context.Context, card *JobCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	if m.collide > 0 {
		m.collide--
		return ErrDisplayIDTaken
	}
	for _, c := range m.cards {
		if c.DisplayID == card.DisplayID {
			return ErrDisplayIDTaken
		}
	}
	now := time.Now()
	card.ID = m.nextID
	m.nextID++
	card.CreatedAt, card.UpdatedAt = now, now
	m.cards[card.ID] = cloneCard(card)
	return nil
}

func (m *mockRepository) Update(ctx context.Context, card *JobCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if _, ok := m.cards[card.ID]; !ok {
		return ErrNotFound
	}
	card.UpdatedAt = time.Now()
	m.cards[card.ID] = cloneCard(card)
	return nil
}

func (m *mockRepository) UpdatePayments(ctx context.Context, id int64, collected decimal.Decimal) (*JobCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.updates++
	c.Collected = collected
	c.AmountPaid = c.AdvancePaid.Add(collected)
	c.Balance = c.GrandTotal.Sub(c.AmountPaid)
	return cloneCard(c), nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) (*JobCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.cards, id)
	return c, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*JobCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCard(c), nil
}

func (m *mockRepository) GetByDisplayID(ctx context.Context, displayID string) (*JobCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.DisplayID == displayID {
			return cloneCard(c), nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]JobCard, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []JobCard{}
	for _, c := range m.cards {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.RegNo != "" && c.RegNo != strings.ToUpper(filter.RegNo) {
			continue
		}
		out = append(out, *cloneCard(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if filter.Offset >= len(out) {
		return []JobCard{}, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *mockRepository) ListDisplayIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.cards))
	for _, c := range m.cards {
		ids = append(ids, c.DisplayID)
	}
	sort.Strings(ids)
	return ids, nil
}

// ============================================================================
// MOCK COLLABORATORS
// ============================================================================

type memAllocator struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
	err    error
}

func newMemAllocator() *memAllocator {
	return &memAllocator{values: map[string]int64{}}
}

func (a *memAllocator) Next(ctx context.Context, key string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return 0, a.err
	}
	a.values[key]++
	return a.values[key], nil
}

func (a *memAllocator) Current(ctx context.Context, key string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.values[key], nil
}

func (a *memAllocator) Set(ctx context.Context, key string, value int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
	return nil
}

// paymentLedger is a PaymentSource backed by a map of display id to amounts.
type paymentLedger struct {
	mu       sync.Mutex
	name     string
	payments map[string][]decimal.Decimal
	err      error
	// When release is set, SumPayments signals entered and blocks until
	// release is closed.
	entered chan struct{}
	release chan struct{}
}

func newPaymentLedger(name string) *paymentLedger {
	return &paymentLedger{name: name, payments: map[string][]decimal.Decimal{}}
}

func (l *paymentLedger) Name() string { return l.name }

func (l *paymentLedger) record(displayID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payments[displayID] = append(l.payments[displayID], decimal.NewFromInt(amount))
}

func (l *paymentLedger) clear(displayID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.payments, displayID)
}

func (l *paymentLedger) SumPayments(ctx context.Context, displayID string) (decimal.Decimal, error) {
	if l.release != nil {
		select {
		case l.entered <- struct{}{}:
		default:
		}
		<-l.release
	}
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return decimal.Zero, l.err
	}
	sum := decimal.Zero
	for _, a := range l.payments[displayID] {
		sum = sum.Add(a)
	}
	return sum, nil
}

type countingRecorder struct {
	mu         sync.Mutex
	conflicts  int
	reconciled map[string]int
}

func (r *countingRecorder) IdentifierConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts++
}

func (r *countingRecorder) Reconciled(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reconciled == nil {
		r.reconciled = map[string]int{}
	}
	r.reconciled[outcome]++
}
