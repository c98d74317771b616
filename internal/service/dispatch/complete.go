package dispatch

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

// CompleteTrip closes a started trip: it prices it, writes the financials,
// frees the driver and credits the wallet as one unit. A retry after success
// fails with ErrInvalidTripState, so the wallet is credited once.
func (s *Service) CompleteTrip(ctx context.Context, cmd CompleteCommand) (*models.Booking, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:    types.ActionCompleteTrip,
		BookingID: cmd.BookingID.String(),
		DriverID:  cmd.DriverID.String(),
	})

	booking, err := s.bookings.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if booking.Status != types.StatusTripStarted || !booking.IsAssignedTo(cmd.DriverID) {
		return nil, wrap.Error(ctx, types.ErrInvalidTripState)
	}

	// Pricing comes first: a missing rule must abort before anything is written.
	rule, err := s.pricing.ActivePricing(ctx, booking.VehicleType)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	distanceKm := booking.Metrics.RemainingKm
	if cmd.DistanceKm != nil {
		distanceKm = *cmd.DistanceKm
	}

	fare, err := s.fare.Compute(distanceKm, rule, booking.Metrics.PickupCharge)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	endedAt := s.now()
	fare.FinalizedAt = endedAt

	method := booking.PaymentMethod
	if method != types.PaymentOnline {
		method = types.PaymentCash
	}

	completed := models.CompletedTrip{
		DriverID:          cmd.DriverID,
		Fare:              fare,
		TripDistanceKm:    distanceKm,
		EndedAt:           endedAt,
		ActualDurationMin: ridecalc.DurationMinutes(booking.Metrics.TripStartedAt, &endedAt),
		PaymentMethod:     method,
		PaymentStatus:     types.PaymentSuccess,
	}

	fn := func(ctx context.Context) error {
		ok, err := s.bookings.Complete(ctx, cmd.BookingID, completed)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to complete booking: %w", err))
		}
		if !ok {
			return wrap.Error(ctx, types.ErrInvalidTripState)
		}

		if err := s.drivers.Release(ctx, cmd.DriverID); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to release driver: %w", err))
		}

		if err := s.wallet.Credit(ctx, cmd.DriverID, cmd.BookingID, fare.DriverEarning); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to credit wallet: %w", err))
		}
		return nil
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return nil, err
	}

	booking.Status = types.StatusTripCompleted
	booking.Fare = &completed.Fare
	booking.Metrics.TripEndedAt = &completed.EndedAt
	booking.Metrics.TripDistanceKm = completed.TripDistanceKm
	booking.Metrics.ActualDurationMin = completed.ActualDurationMin
	booking.Metrics.RemainingKm = 0
	booking.PaymentMethod = completed.PaymentMethod
	booking.PaymentStatus = completed.PaymentStatus

	s.stopTracking(ctx, booking.ID)
	s.publish(ctx, booking, types.EventTripCompleted, map[string]any{
		"final_fare":        fare.FinalFare,
		"commission_amount": fare.CommissionAmount,
		"driver_earning":    fare.DriverEarning,
		"payment_method":    method,
	})

	s.l.Info(ctx, "trip completed", "final_fare", fare.FinalFare, "driver_earning", fare.DriverEarning)
	return booking, nil
}
