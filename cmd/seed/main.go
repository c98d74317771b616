package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/migrations"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Pool.Close()

	// short timeout for seed operations
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := migrations.Apply(ctx, client.Pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var (
		driver  = &models.Driver{ID: uuid.MustNew(), Name: "Demo Driver", IsOnline: true, IsAvailable: true}
		booking = &models.Booking{
			ID:            uuid.MustNew(),
			CustomerID:    uuid.MustNew(),
			Status:        types.StatusAwaitingDriver,
			VehicleType:   types.EconomyClass,
			Pickup:        models.Location{Latitude: 43.238949, Longitude: 76.889709},
			Drop:          models.Location{Latitude: 43.222015, Longitude: 76.851248},
			PaymentMethod: types.PaymentCash,
			PaymentStatus: types.PaymentPending,
		}
	)

	// Pricing runs outside the transaction: a unique violation would abort it.
	if err := seedPricing(ctx, repo.NewPricingRepo(client.Pool)); err != nil {
		log.Fatalf("seed pricing: %v", err)
	}

	err = trm.New(client.Pool, logger.InitLogger("seed", logger.LevelInfo)).Do(ctx, func(ctx context.Context) error {
		if err := repo.NewDriverRepo(client.Pool).Create(ctx, driver); err != nil {
			return fmt.Errorf("create driver: %w", err)
		}
		if err := repo.NewBookingRepo(client.Pool).Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	driverToken, err := tokens.Issue(driver.ID, types.DriverRole)
	if err != nil {
		log.Fatalf("issue driver token: %v", err)
	}
	adminToken, err := tokens.Issue(uuid.MustNew(), types.AdminRole)
	if err != nil {
		log.Fatalf("issue admin token: %v", err)
	}

	fmt.Printf("driver_id:    %s\n", driver.ID)
	fmt.Printf("booking_id:   %s\n", booking.ID)
	fmt.Printf("driver token: %s\n", driverToken)
	fmt.Printf("admin token:  %s\n", adminToken)
}

// seedPricing ensures one active rule per vehicle class. Classes that already have one are skipped.
func seedPricing(ctx context.Context, pricing *repo.PricingRepo) error {
	premiumCommission := 25.0
	rules := []models.PricingRule{
		{VehicleType: types.EconomyClass, BaseFare: 50, PerKmRate: 12},
		{VehicleType: types.PremiumClass, BaseFare: 80, PerKmRate: 18, CommissionPercent: &premiumCommission},
		{VehicleType: types.XLClass, BaseFare: 100, PerKmRate: 20},
	}

	for _, rule := range rules {
		rule.ID = uuid.MustNew()
		rule.IsActive = true
		if err := pricing.Create(ctx, &rule); err != nil {
			if postgres.IsUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("create pricing %s: %w", rule.VehicleType, err)
		}
	}
	return nil
}
