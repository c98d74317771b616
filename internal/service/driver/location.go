package drivergo

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// LocationResult describes what a location update did to the driver's active booking.
type LocationResult struct {
	BookingID          *uuid.UUID `json:"booking_id,omitempty"`
	DistanceToPickupKm *float64   `json:"distance_to_pickup_km,omitempty"`
	ArrivedAtPickup    bool       `json:"arrived_at_pickup"`
}

// UpdateLocation stores the driver's position, relays it for the active booking
// and latches arrival at the pickup point once the driver is within the arrival radius.
func (s *Service) UpdateLocation(ctx context.Context, driverID uuid.UUID, loc models.Location) (LocationResult, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionUpdateLocation, DriverID: driverID.String()})

	at := s.now()
	if err := s.drivers.UpdateLocation(ctx, driverID, loc, at); err != nil {
		return LocationResult{}, wrap.Error(ctx, fmt.Errorf("failed to update driver location: %w", err))
	}

	active, err := s.bookings.ActiveForDriver(ctx, driverID)
	if err != nil {
		return LocationResult{}, wrap.Error(ctx, fmt.Errorf("failed to get active booking: %w", err))
	}

	switch len(active) {
	case 0:
		return LocationResult{}, nil
	case 1:
	default:
		// More than one active booking breaks driver exclusivity; relaying to either would be a guess.
		s.l.Error(ctx, "driver bound to several active bookings", fmt.Errorf("%d active bookings", len(active)))
		return LocationResult{}, nil
	}

	booking := active[0]
	ctx = wrap.WithBookingID(ctx, booking.ID.String())
	result := LocationResult{BookingID: &booking.ID}

	if s.relay != nil {
		if err := s.relay.EmitLocation(ctx, models.BookingLocationUpdate{
			BookingID: booking.ID,
			DriverID:  driverID,
			Location:  loc,
			Timestamp: at,
		}); err != nil {
			s.l.Warn(ctx, "failed to relay location", "error", err.Error())
		}
	}

	if booking.Metrics.ArrivedAtPickupAt != nil {
		result.ArrivedAtPickup = true
		return result, nil
	}

	dist := ridecalc.Distance(loc, booking.Pickup)
	result.DistanceToPickupKm = &dist
	if dist > s.arrivalRadiusKm {
		return result, nil
	}

	ok, err := s.bookings.MarkArrived(ctx, booking.ID, at)
	if err != nil {
		return result, wrap.Error(ctx, fmt.Errorf("failed to mark arrival: %w", err))
	}
	if !ok {
		// Latched by a concurrent update, or the booking left the active states.
		return result, nil
	}
	result.ArrivedAtPickup = true

	if s.events != nil {
		if err := s.events.PublishBookingEvent(ctx, models.BookingEventMessage{
			Type:       types.EventDriverArrived,
			BookingID:  booking.ID,
			DriverID:   &driverID,
			Status:     booking.Status,
			OccurredAt: at,
		}); err != nil {
			s.l.Warn(ctx, "failed to publish arrival event", "error", err.Error())
		}
	}

	s.l.Info(ctx, "driver arrived at pickup", "distance_km", dist)
	return result, nil
}
