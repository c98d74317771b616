package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

type PricingRepo struct {
	db *pgxpool.Pool
}

func NewPricingRepo(db *pgxpool.Pool) *PricingRepo {
	return &PricingRepo{db: db}
}

// Create inserts a pricing rule. At most one rule per vehicle type can be active.
func (r *PricingRepo) Create(ctx context.Context, rule *models.PricingRule) error {
	const op = "PricingRepo.Create"
	query := `
		INSERT INTO pricing_rules (id, vehicle_type, base_fare, per_km_rate, commission_percent, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		rule.ID,
		rule.VehicleType,
		rule.BaseFare,
		rule.PerKmRate,
		rule.CommissionPercent,
		rule.IsActive,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *PricingRepo) ActivePricing(ctx context.Context, vehicleType types.VehicleClass) (*models.PricingRule, error) {
	const op = "PricingRepo.ActivePricing"
	query := `
		SELECT id, vehicle_type, base_fare, per_km_rate, commission_percent, is_active
		FROM pricing_rules
		WHERE vehicle_type = $1 AND is_active`

	var rule models.PricingRule
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query, vehicleType).Scan(
		&rule.ID,
		&rule.VehicleType,
		&rule.BaseFare,
		&rule.PerKmRate,
		&rule.CommissionPercent,
		&rule.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrPricingNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &rule, nil
}
