package drivergo

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*=================Driver Repository======================*/

type DriverRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, loc models.Location, at time.Time) error
	SetOnline(ctx context.Context, id uuid.UUID) error
	// SetOffline returns false while the driver is on a trip.
	SetOffline(ctx context.Context, id uuid.UUID) (bool, error)
}

/*=================Booking Repository=====================*/

type BookingRepo interface {
	ActiveForDriver(ctx context.Context, driverID uuid.UUID) ([]*models.Booking, error)
	// MarkArrived sets arrived_at_pickup_at if it is still unset and the booking is active.
	MarkArrived(ctx context.Context, bookingID uuid.UUID, at time.Time) (bool, error)
}

/*========================Publisher=======================*/

type LocationRelay interface {
	EmitLocation(ctx context.Context, update models.BookingLocationUpdate) error
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event models.BookingEventMessage) error
}
