package memory

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type BookingRepo struct {
	s *Store
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, types.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

// update applies fn to the booking when cond holds, all under the write lock.
func (r *BookingRepo) update(ctx context.Context, id uuid.UUID, cond func(b *models.Booking) bool, fn func(b *models.Booking)) (bool, error) {
	defer r.s.lock(ctx)()

	b, ok := r.s.bookings[id]
	if !ok {
		return false, types.ErrBookingNotFound
	}
	if !cond(b) {
		return false, nil
	}
	fn(b)
	b.UpdatedAt = time.Now()
	return true, nil
}

func (r *BookingRepo) Assign(ctx context.Context, id uuid.UUID, trip models.AssignedTrip) (bool, error) {
	return r.update(ctx, id,
		func(b *models.Booking) bool {
			return b.Status == types.StatusAwaitingDriver && b.DriverID == nil
		},
		func(b *models.Booking) {
			driverID := trip.DriverID
			b.Status = types.StatusDriverAssigned
			b.DriverID = &driverID
			b.Metrics.DriverToPickupKm = trip.DriverToPickupKm
			b.Metrics.DriverToPickupEtaMin = trip.DriverToPickupEtaMin
			b.Metrics.PickupCharge = trip.PickupCharge
		})
}

func (r *BookingRepo) AddRejectedDriver(ctx context.Context, id, driverID uuid.UUID) (bool, error) {
	return r.update(ctx, id,
		func(b *models.Booking) bool { return b.Status == types.StatusAwaitingDriver },
		func(b *models.Booking) {
			if !b.HasRejected(driverID) {
				b.RejectedDrivers = append(b.RejectedDrivers, driverID)
			}
		})
}

func (r *BookingRepo) Start(ctx context.Context, id uuid.UUID, trip models.StartedTrip) (bool, error) {
	return r.update(ctx, id,
		func(b *models.Booking) bool {
			return b.Status == types.StatusDriverAssigned && b.IsAssignedTo(trip.DriverID)
		},
		func(b *models.Booking) {
			startedAt := trip.StartedAt
			b.Status = types.StatusTripStarted
			b.Metrics.TripStartedAt = &startedAt
			b.Metrics.PickupToDropEtaMin = trip.PickupToDropEtaMin
			b.Metrics.RemainingKm = trip.RemainingKm
		})
}

func (r *BookingRepo) Complete(ctx context.Context, id uuid.UUID, trip models.CompletedTrip) (bool, error) {
	return r.update(ctx, id,
		func(b *models.Booking) bool {
			return b.Status == types.StatusTripStarted && b.IsAssignedTo(trip.DriverID) && b.Fare == nil
		},
		func(b *models.Booking) {
			fare := trip.Fare
			endedAt := trip.EndedAt
			b.Status = types.StatusTripCompleted
			b.Fare = &fare
			b.Metrics.TripEndedAt = &endedAt
			b.Metrics.TripDistanceKm = trip.TripDistanceKm
			b.Metrics.ActualDurationMin = trip.ActualDurationMin
			b.Metrics.RemainingKm = 0
			b.PaymentMethod = trip.PaymentMethod
			b.PaymentStatus = trip.PaymentStatus
		})
}

func (r *BookingRepo) Cancel(ctx context.Context, id uuid.UUID, from types.BookingStatus, reason string, at time.Time) (bool, error) {
	return r.update(ctx, id,
		func(b *models.Booking) bool { return b.Status == from && !from.IsTerminal() },
		func(b *models.Booking) {
			b.Status = types.StatusCancelled
			b.CancellationReason = reason
			b.CancelledAt = &at
		})
}

// MarkArrived only touches the arrival timestamp.
func (r *BookingRepo) MarkArrived(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.update(ctx, id,
		func(b *models.Booking) bool {
			return b.Metrics.ArrivedAtPickupAt == nil && b.Status.IsActive()
		},
		func(b *models.Booking) {
			b.Metrics.ArrivedAtPickupAt = &at
		})
}

func (r *BookingRepo) ActiveForDriver(ctx context.Context, driverID uuid.UUID) ([]*models.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Booking
	for _, b := range r.s.bookings {
		if b.Status.IsActive() && b.IsAssignedTo(driverID) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}
