package dispatch

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*=================Booking Repository======================*/

// BookingRepository mutates bookings only through conditional updates.
// The bool results report whether the expected state still held; false means
// a concurrent writer won and nothing was written.
type BookingRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Assign(ctx context.Context, id uuid.UUID, trip models.AssignedTrip) (bool, error)
	AddRejectedDriver(ctx context.Context, id, driverID uuid.UUID) (bool, error)
	Start(ctx context.Context, id uuid.UUID, trip models.StartedTrip) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, trip models.CompletedTrip) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, from types.BookingStatus, reason string, at time.Time) (bool, error)
}

/*=================Driver Repository=======================*/

type DriverRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	// Reserve flips an available driver to on-trip.
	Reserve(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}

/*=================Pricing=================================*/

type PricingRepository interface {
	ActivePricing(ctx context.Context, vehicleType types.VehicleClass) (*models.PricingRule, error)
}

/*=================Wallet==================================*/

type WalletCreditor interface {
	Credit(ctx context.Context, driverID, bookingID uuid.UUID, amount int64) error
}

/*=================External collaborators==================*/

type DistanceLookup interface {
	DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error)
}

// TrackingRelay is fire-and-forget: failures never undo a transition.
type TrackingRelay interface {
	StartTracking(ctx context.Context, bookingID uuid.UUID) error
	StopTracking(ctx context.Context, bookingID uuid.UUID) error
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event models.BookingEventMessage) error
}
