package models

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// PricingRule is the fare schedule of one vehicle type. Read-only for dispatch.
type PricingRule struct {
	ID                uuid.UUID          `json:"id"`
	VehicleType       types.VehicleClass `json:"vehicle_type"`
	BaseFare          float64            `json:"base_fare"`
	PerKmRate         float64            `json:"per_km_rate"`
	CommissionPercent *float64           `json:"commission_percent,omitempty"` // nil means default
	IsActive          bool               `json:"is_active"`
}
