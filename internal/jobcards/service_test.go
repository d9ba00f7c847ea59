package jobcards

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrr-automobiles/portal/internal/platform/httpx"
	"github.com/jrr-automobiles/portal/internal/sequence"
)

type fixture struct {
	svc      *Service
	repo     *mockRepository
	alloc    *memAllocator
	ledger   *paymentLedger
	recorder *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMockRepository(),
		alloc:    newMemAllocator(),
		ledger:   newPaymentLedger("bodyshop"),
		recorder: &countingRecorder{},
	}
	f.svc = NewService(f.repo, sequence.NewIssuer(f.alloc, "JRR", nil), NewReconciler(f.ledger), ServiceConfig{
		Location: time.UTC,
		Recorder: f.recorder,
		Now:      func() time.Time { return time.Date(2025, 3, 7, 9, 30, 0, 0, time.UTC) },
	})
	return f
}

func validRequest() CreateRequest {
	return CreateRequest{
		Name:         "Ravi Kumar",
		MobileNo:     "9876543210",
		RegNo:        "tn 09 ab 1234",
		VehicleModel: "Swift",
		FuelType:     "Petrol",
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateComputesTotalsAndSequence(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Spares = []LineItemInput{
		{Description: "Oil filter", Quantity: 2.0, UnitAmount: 150.0},
		{Description: "Brake pads", Quantity: 1.0, UnitAmount: 300.0},
	}

	card, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "JRR-2025-00001", card.DisplayID)
	assert.True(t, card.GrandTotal.Equal(dec("600")))
	assert.True(t, card.SparesTotal.Equal(dec("600")))
	assert.True(t, card.Balance.Equal(dec("600")))
	assert.Equal(t, 1, card.Spares[0].DisplaySeq)
	assert.Equal(t, 2, card.Spares[1].DisplaySeq)
	assert.Equal(t, "TN 09 AB 1234", card.RegNo)
	assert.Equal(t, "petrol", card.FuelType)
	assert.Equal(t, StatusPending, card.Status)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), card.Date)
}

func TestCreateBackToBackIsSequential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	assert.Equal(t, "JRR-2025-00001", first.DisplayID)
	assert.Equal(t, "JRR-2025-00002", second.DisplayID)
}

func TestCreateUsesBusinessYear(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Date = "31-12-2024"

	card, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "JRR-2024-00001", card.DisplayID)
}

func TestPaymentsFromRegistersAreReconciledOnSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := validRequest()
	req.Labours = []LineItemInput{{Description: "Service", Quantity: 1.0, UnitAmount: 600.0}}
	card, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	f.ledger.record(card.DisplayID, 200)
	card, err = f.svc.Update(ctx, card.ID, UpdateRequest{})
	require.NoError(t, err)
	assert.True(t, card.AmountPaid.Equal(dec("200")))
	assert.True(t, card.Balance.Equal(dec("400")))

	f.ledger.clear(card.DisplayID)
	card, err = f.svc.Update(ctx, card.ID, UpdateRequest{})
	require.NoError(t, err)
	assert.True(t, card.AmountPaid.IsZero())
	assert.True(t, card.Balance.Equal(dec("600")))
}

func TestNegativeQuantityContributesNothing(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Spares = []LineItemInput{{Description: "Return", Quantity: -5.0, UnitAmount: 100.0}}

	card, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, card.Spares[0].LineTotal.IsZero())
	assert.True(t, card.GrandTotal.IsZero())
}

func TestAllItemsDoneCompletesCard(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Spares = []LineItemInput{{Description: "Bulb", Quantity: 1.0, UnitAmount: 50.0, Done: true}}
	req.Labours = []LineItemInput{{Description: "Fitting", UnitAmount: 20.0, Checkbox: "true"}}

	card, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, card.Status)
	assert.False(t, card.StatusOverridden)
}

func TestCreateRetryIsBounded(t *testing.T) {
	f := newFixture(t)
	f.repo.collide = 3

	_, err := f.svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrIdentifierConflict)
	assert.ErrorIs(t, err, httpx.ErrConflict)
	assert.Equal(t, maxCreateAttempts, f.alloc.calls)
	assert.Equal(t, maxCreateAttempts, f.repo.inserts)
	assert.Equal(t, maxCreateAttempts, f.recorder.conflicts)
	assert.Empty(t, f.repo.cards)
}

func TestCreateRecoversFromCollision(t *testing.T) {
	f := newFixture(t)
	f.repo.collide = 2

	card, err := f.svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "JRR-2025-00003", card.DisplayID)
	assert.Equal(t, 2, f.recorder.conflicts)
}

func TestCreateValidatesBeforeAllocating(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Name = "  "
	req.FuelType = "steam"
	req.Date = "not a date"

	_, err := f.svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrValidation)
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "fuel_type")
	assert.Contains(t, verr.Fields, "date")
	assert.Zero(t, f.alloc.calls)
	assert.Zero(t, f.repo.inserts)
}

func TestCreateKilometers(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int64
		invalid bool
	}{
		{"number", 42150.0, 42150, false},
		{"numeric string", " 1200 ", 1200, false},
		{"fraction truncated", "99.9", 99, false},
		{"blank is absent", "", 0, false},
		{"null is absent", nil, 0, false},
		{"negative", -5.0, 0, true},
		{"negative string", "-5", 0, true},
		{"not a number", "abc", 0, true},
		{"wrong type", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			req.Kilometers = tt.value

			card, err := f.svc.Create(context.Background(), req)
			if tt.invalid {
				var verr *httpx.ValidationError
				require.True(t, errors.As(err, &verr), "got %v", err)
				assert.Contains(t, verr.Fields, "kilometers")
				assert.Zero(t, f.alloc.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, card.Kilometers)
		})
	}
}

func TestUpdateKilometers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := validRequest()
	req.Kilometers = 5000.0
	card, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, card.ID, UpdateRequest{Kilometers: "abc"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = f.svc.Update(ctx, card.ID, UpdateRequest{Kilometers: -5.0})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	card, err = f.svc.Update(ctx, card.ID, UpdateRequest{Kilometers: " "})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), card.Kilometers)

	card, err = f.svc.Update(ctx, card.ID, UpdateRequest{Kilometers: "5400"})
	require.NoError(t, err)
	assert.Equal(t, int64(5400), card.Kilometers)
}

func TestCreateSurfacesStorageErrors(t *testing.T) {
	f := newFixture(t)
	f.repo.insertErr = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), validRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIdentifierConflict)
	assert.Equal(t, 1, f.repo.inserts)

	f.repo.insertErr = nil
	f.alloc.err = fmt.Errorf("%w: timeout", sequence.ErrUnavailable)
	_, err = f.svc.Create(context.Background(), validRequest())
	assert.ErrorIs(t, err, sequence.ErrUnavailable)
}

func TestExplicitStatusSticksUntilItemsChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	completed := StatusCompleted
	req := validRequest()
	req.Spares = []LineItemInput{{Description: "Wiper", Quantity: 1.0, UnitAmount: 80.0}}
	req.Status = &completed

	card, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, card.Status)
	assert.True(t, card.StatusOverridden)

	remarks := "customer waiting"
	card, err = f.svc.Update(ctx, card.ID, UpdateRequest{Remarks: &remarks})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, card.Status)

	card, err = f.svc.Update(ctx, card.ID, UpdateRequest{Spares: []LineItemInput{
		{Description: "Wiper", Quantity: 2.0, UnitAmount: 80.0},
	}})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, card.Status)
	assert.False(t, card.StatusOverridden)
}

func TestUpdateKeepsDisplayIDAndValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	blank := " "
	_, err = f.svc.Update(ctx, card.ID, UpdateRequest{Name: &blank})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	date := "2024-06-01"
	updated, err := f.svc.Update(ctx, card.ID, UpdateRequest{Date: &date, AdvancePaid: "750"})
	require.NoError(t, err)
	assert.Equal(t, card.DisplayID, updated.DisplayID)
	assert.True(t, updated.AdvancePaid.Equal(dec("750")))
	assert.True(t, updated.Balance.Equal(dec("-750")))

	_, err = f.svc.Update(ctx, 999, UpdateRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLineItemEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	card, err = f.svc.AddItem(ctx, card.ID, GroupSpares, LineItemInput{Description: "Belt", Quantity: 1.0, UnitAmount: 400.0})
	require.NoError(t, err)
	card, err = f.svc.AddItem(ctx, card.ID, GroupSpares, LineItemInput{Description: "Coolant", Quantity: 2.0, UnitAmount: 100.0})
	require.NoError(t, err)
	require.Len(t, card.Spares, 2)
	assert.True(t, card.GrandTotal.Equal(dec("600")))

	beltID := card.Spares[0].ID
	card, err = f.svc.UpdateItem(ctx, card.ID, GroupSpares, beltID, ItemPatch{Quantity: 2.0})
	require.NoError(t, err)
	assert.Equal(t, beltID, card.Spares[0].ID)
	assert.True(t, card.GrandTotal.Equal(dec("1000")))

	card, err = f.svc.DeleteItem(ctx, card.ID, GroupSpares, beltID)
	require.NoError(t, err)
	require.Len(t, card.Spares, 1)
	assert.Equal(t, 1, card.Spares[0].DisplaySeq)
	assert.True(t, card.GrandTotal.Equal(dec("200")))

	_, err = f.svc.DeleteItem(ctx, card.ID, GroupSpares, beltID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRepeatedItemIDsAreSeparatelyAddressable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	shared := "0b8a3f1e-7c2d-4e5f-9a6b-1c2d3e4f5a6b"
	card, err = f.svc.Update(ctx, card.ID, UpdateRequest{Spares: []LineItemInput{
		{ID: shared, Description: "Bulb", Quantity: 1.0, UnitAmount: 60.0},
		{ID: shared, Description: "Fuse", Quantity: 1.0, UnitAmount: 20.0},
	}})
	require.NoError(t, err)
	require.Len(t, card.Spares, 2)
	assert.Equal(t, shared, card.Spares[0].ID)
	assert.NotEqual(t, shared, card.Spares[1].ID)

	card, err = f.svc.DeleteItem(ctx, card.ID, GroupSpares, shared)
	require.NoError(t, err)
	require.Len(t, card.Spares, 1)
	assert.Equal(t, "Fuse", card.Spares[0].Description)
	assert.NotEqual(t, shared, card.Spares[0].ID)

	card, err = f.svc.DeleteItem(ctx, card.ID, GroupSpares, card.Spares[0].ID)
	require.NoError(t, err)
	assert.Empty(t, card.Spares)
}

func TestDeleteDoesNotReclaimNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, card.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, card.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	next, err := f.svc.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "JRR-2025-00002", next.DisplayID)
}

func TestReconcileDisplayID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := validRequest()
	req.Spares = []LineItemInput{{Description: "Tyre", Quantity: 1.0, UnitAmount: 1000.0}}
	card, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	require.NoError(t, f.svc.ReconcileDisplayID(ctx, "JRR-2030-00042"))

	f.ledger.record(card.DisplayID, 250)
	require.NoError(t, f.svc.ReconcileDisplayID(ctx, " "+card.DisplayID))
	stored, err := f.svc.GetByDisplayID(ctx, card.DisplayID)
	require.NoError(t, err)
	assert.True(t, stored.Collected.Equal(dec("250")))
	assert.True(t, stored.Balance.Equal(dec("750")))

	updates := f.repo.updates
	_, err = f.svc.Reconcile(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, updates, f.repo.updates)
}

func TestReconcileDisplayIDOutlivesCancelledCaller(t *testing.T) {
	f := newFixture(t)
	card, err := f.svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	f.ledger.record(card.DisplayID, 400)
	f.ledger.entered = make(chan struct{}, 1)
	f.ledger.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.ReconcileDisplayID(ctx, card.DisplayID) }()

	<-f.ledger.entered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	close(f.ledger.release)

	require.Eventually(t, func() bool {
		stored, err := f.svc.Get(context.Background(), card.ID)
		return err == nil && stored.Collected.Equal(dec("400"))
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, f.svc.ReconcileDisplayID(context.Background(), card.DisplayID))
}

func TestReconcileAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, validRequest())
		require.NoError(t, err)
	}
	f.ledger.record("JRR-2025-00002", 90)

	n, err := f.svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	card, err := f.svc.GetByDisplayID(ctx, "JRR-2025-00002")
	require.NoError(t, err)
	assert.True(t, card.Collected.Equal(dec("90")))

	f.ledger.err = errors.New("register offline")
	n, err = f.svc.ReconcileAll(ctx)
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 3, f.recorder.reconciled["error"])
}

func TestGetByDisplayIDRejectsMalformed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetByDisplayID(context.Background(), "12345")
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Contains(t, err.Error(), "JRR-2025-00001")

	f.svc.now = func() time.Time { return time.Date(2027, 1, 2, 8, 0, 0, 0, time.UTC) }
	_, err = f.svc.GetByDisplayID(context.Background(), "JRR-27-1")
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Contains(t, err.Error(), "JRR-2027-00001")
}

func TestListClampsLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, validRequest())
		require.NoError(t, err)
	}
	cards, total, err := f.svc.List(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, cards, 2)
	assert.Equal(t, "JRR-2025-00003", cards[0].DisplayID)
}
