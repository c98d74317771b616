package memory

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

type PricingRepo struct {
	s *Store
}

func (r *PricingRepo) ActivePricing(ctx context.Context, vehicleType types.VehicleClass) (*models.PricingRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rule, ok := r.s.pricing[vehicleType]
	if !ok || !rule.IsActive {
		return nil, types.ErrPricingNotFound
	}
	cp := *rule
	return &cp, nil
}
