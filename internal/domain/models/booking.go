package models

import (
	"slices"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type Booking struct {
	ID          uuid.UUID           `json:"id"`
	CustomerID  uuid.UUID           `json:"customer_id"`
	DriverID    *uuid.UUID          `json:"driver_id,omitempty"` // set once, by accept
	Status      types.BookingStatus `json:"status"`
	VehicleType types.VehicleClass  `json:"vehicle_type"`

	Pickup Location `json:"pickup"`
	Drop   Location `json:"drop"`

	RejectedDrivers []uuid.UUID `json:"rejected_drivers"`

	Metrics TripMetrics `json:"metrics"`

	PaymentMethod types.PaymentMethod `json:"payment_method"`
	PaymentStatus types.PaymentStatus `json:"payment_status"`
	Fare          *FareBreakdown      `json:"fare,omitempty"` // nil until completion

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TripMetrics are filled progressively by accept, start, location updates and completion.
type TripMetrics struct {
	DriverToPickupKm     float64 `json:"driver_to_pickup_km"`
	DriverToPickupEtaMin float64 `json:"driver_to_pickup_eta_min"`
	PickupCharge         int64   `json:"pickup_charge"`
	PickupToDropEtaMin   float64 `json:"pickup_to_drop_eta_min"`
	RemainingKm          float64 `json:"remaining_km"`
	TripDistanceKm       float64 `json:"trip_distance_km"`
	ActualDurationMin    float64 `json:"actual_duration_min"`

	ArrivedAtPickupAt *time.Time `json:"arrived_at_pickup_at,omitempty"`
	TripStartedAt     *time.Time `json:"trip_started_at,omitempty"`
	TripEndedAt       *time.Time `json:"trip_ended_at,omitempty"`
}

// FareBreakdown is written once, by trip completion.
type FareBreakdown struct {
	FinalFare        int64     `json:"final_fare"`
	CommissionAmount int64     `json:"commission_amount"`
	DriverEarning    int64     `json:"driver_earning"`
	FinalizedAt      time.Time `json:"finalized_at"`
}

func (b *Booking) IsAssignedTo(driverID uuid.UUID) bool {
	return b.DriverID != nil && *b.DriverID == driverID
}

func (b *Booking) HasRejected(driverID uuid.UUID) bool {
	return slices.Contains(b.RejectedDrivers, driverID)
}

// AssignedTrip carries the values accept writes together with the status change.
type AssignedTrip struct {
	DriverID             uuid.UUID
	DriverToPickupKm     float64
	DriverToPickupEtaMin float64
	PickupCharge         int64
}

// StartedTrip carries the values start writes together with the status change.
type StartedTrip struct {
	DriverID           uuid.UUID
	StartedAt          time.Time
	PickupToDropEtaMin float64
	RemainingKm        float64
}

// CompletedTrip carries the values completion writes together with the status change.
type CompletedTrip struct {
	DriverID          uuid.UUID
	Fare              FareBreakdown
	TripDistanceKm    float64
	EndedAt           time.Time
	ActualDurationMin float64
	PaymentMethod     types.PaymentMethod
	PaymentStatus     types.PaymentStatus
}
