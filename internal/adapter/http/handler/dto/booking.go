package dto

import (
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type CompleteTripReq struct {
	// DistanceKm is the odometer distance reported by the driver app. When
	// omitted the route distance computed at trip start is used.
	DistanceKm *float64 `json:"distance_km" validate:"omitempty,gt=0,lte=2000"`
}

func (r *CompleteTripReq) Validate(v *validator.Validator) {
	v.Struct(r)
}

type CancelBookingReq struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (r *CancelBookingReq) Validate(v *validator.Validator) {
	v.Struct(r)
}
