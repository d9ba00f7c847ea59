package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jrr-automobiles/portal/internal/app"
	"github.com/jrr-automobiles/portal/internal/jobcards"
	"github.com/jrr-automobiles/portal/internal/platform/db"
	"github.com/jrr-automobiles/portal/internal/registers"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	services := app.BuildServices(app.ServicesParams{Config: cfg, Logger: app.NewLogger(cfg), Pool: pool})

	fmt.Println("→ Seeding job cards...")
	cards, err := seedJobCards(ctx, services.JobCards)
	if err != nil {
		log.Fatalf("seed job cards: %v", err)
	}

	fmt.Println("→ Seeding registers...")
	if err := seedRegisters(ctx, services.Registers, cards); err != nil {
		log.Fatalf("seed registers: %v", err)
	}

	fmt.Println("→ Reconciling payments...")
	n, err := services.JobCards.ReconcileAll(ctx)
	if err != nil {
		log.Fatalf("reconcile: %v", err)
	}
	fmt.Printf("✓ Seed complete: %d job cards reconciled\n", n)
}

func seedJobCards(ctx context.Context, svc *jobcards.Service) ([]string, error) {
	requests := []jobcards.CreateRequest{
		{
			Name: "Arun Kumar", MobileNo: "9876543210", RegNo: "TN09AB1234",
			VehicleModel: "Swift", Brand: "Maruti", FuelType: "petrol", Kilometers: 42000,
			Spares: []jobcards.LineItemInput{
				{Description: "Engine oil 3.5L", Quantity: 1, UnitAmount: 1850},
				{Description: "Oil filter", Quantity: 1, UnitAmount: 320},
			},
			Labours: []jobcards.LineItemInput{
				{Description: "Periodic service", Quantity: 1, UnitAmount: 1200},
			},
			AdvancePaid: 1000,
		},
		{
			Name: "Bala Subramanian", MobileNo: "9840012345", RegNo: "TN10CD5678",
			VehicleModel: "Nexon EV", Brand: "Tata", FuelType: "ev", Kilometers: 18500,
			Labours: []jobcards.LineItemInput{
				{Description: "Bumper dent removal", Quantity: 1, UnitAmount: 3500},
				{Description: "Full body polish", Quantity: 1, UnitAmount: 2200},
			},
		},
	}
	ids := make([]string, 0, len(requests))
	for _, req := range requests {
		card, err := svc.Create(ctx, req)
		if err != nil {
			return nil, err
		}
		fmt.Printf("  %s %s\n", card.DisplayID, card.CustomerName)
		ids = append(ids, card.DisplayID)
	}
	return ids, nil
}

func seedRegisters(ctx context.Context, svc *registers.Service, cards []string) error {
	today := time.Now().Format(time.DateOnly)
	days := map[registers.Kind][]registers.EntryInput{
		registers.KindPettyCash: {
			{Description: "Tea and snacks", Amount: 120, ModeOfPayment: "cash"},
			{Description: "Cotton waste", Amount: 250, ModeOfPayment: "cash"},
		},
		registers.KindWaterWash: {
			{Name: "Arun Kumar", Vehicle: "Swift", RegNo: "TN09AB1234", ServiceType: "Foam wash", Amount: 450, ModeOfPayment: "gpay", JobCardNo: cards[0]},
			{Name: "Walk-in", Vehicle: "Activa", ServiceType: "Bike wash", Amount: 150, ModeOfPayment: "cash"},
		},
		registers.KindBodyShop: {
			{Name: "Bala Subramanian", Vehicle: "Nexon EV", RegNo: "TN10CD5678", Amount: 4000, ModeOfPayment: "card", JobCardNo: cards[1]},
		},
	}
	for _, kind := range registers.Kinds {
		day, _, err := svc.CreateDay(ctx, kind, registers.DayRequest{Date: today, Entries: days[kind]})
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		fmt.Printf("  %s %s total %s\n", kind, today, day.TotalDailyAmount.StringFixed(2))
	}
	return nil
}
