package ridecalc

import (
	"errors"
	"math"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

const (
	earthRadiusKm = 6371.0

	DefaultCommissionPercent = 20.0
	DefaultArrivalRadiusKm   = 0.05 // 50 meters
)

var ErrNegativeDistance = errors.New("distance must not be negative")

// pickupTiers maps the driver->pickup leg to a flat charge. Upper bounds are inclusive.
var pickupTiers = []struct {
	maxKm  float64
	charge int64
}{
	{3, 10},
	{5, 20},
	{50, 40},
}

// pickupChargeCap applies to every pickup leg longer than the last tier.
const pickupChargeCap int64 = 50

// Distance returns the great-circle distance in km between two points (haversine).
func Distance(p1, p2 models.Location) float64 {
	lat1Rad := p1.Latitude * math.Pi / 180
	lat2Rad := p2.Latitude * math.Pi / 180
	diffLat := (p2.Latitude - p1.Latitude) * math.Pi / 180
	diffLon := (p2.Longitude - p1.Longitude) * math.Pi / 180

	a := math.Sin(diffLat/2)*math.Sin(diffLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(diffLon/2)*math.Sin(diffLon/2)
	angle := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * angle
}

// PickupCharge returns the tiered surcharge for the driver's trip to the pickup point.
func PickupCharge(distanceKm float64) int64 {
	for _, tier := range pickupTiers {
		if distanceKm <= tier.maxKm {
			return tier.charge
		}
	}
	return pickupChargeCap
}

// RoundHalfUp rounds x to the nearest whole unit, halves going up.
func RoundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// DurationMinutes is the time between start and end in minutes, or 0 when either is unknown.
func DurationMinutes(start, end *time.Time) float64 {
	if start == nil || end == nil || end.Before(*start) {
		return 0
	}
	return end.Sub(*start).Minutes()
}

// FareEngine turns a trip into a fare breakdown. It has no side effects.
type FareEngine struct {
	defaultCommission float64
}

func NewFareEngine(defaultCommissionPercent float64) *FareEngine {
	if defaultCommissionPercent < 0 {
		defaultCommissionPercent = DefaultCommissionPercent
	}
	return &FareEngine{defaultCommission: defaultCommissionPercent}
}

// Compute rounds the fare first and takes the commission from the rounded fare.
func (e *FareEngine) Compute(distanceKm float64, rule *models.PricingRule, pickupCharge int64) (models.FareBreakdown, error) {
	if rule == nil || !rule.IsActive {
		return models.FareBreakdown{}, types.ErrPricingNotFound
	}
	if distanceKm < 0 {
		return models.FareBreakdown{}, ErrNegativeDistance
	}
	if pickupCharge < 0 {
		pickupCharge = 0
	}

	finalFare := RoundHalfUp(rule.BaseFare + distanceKm*rule.PerKmRate + float64(pickupCharge))

	pct := e.defaultCommission
	if rule.CommissionPercent != nil {
		pct = *rule.CommissionPercent
	}
	commission := RoundHalfUp(float64(finalFare) * pct / 100)

	return models.FareBreakdown{
		FinalFare:        finalFare,
		CommissionAmount: commission,
		DriverEarning:    finalFare - commission,
	}, nil
}
