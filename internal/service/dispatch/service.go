package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*
Service coordinates the booking lifecycle: accept, reject, start, complete
and cancel. Every transition is a conditional update on the booking, so two
workers racing on the same booking produce one winner and one typed failure.
*/
type Service struct {
	bookings BookingRepository
	drivers  DriverRepository
	pricing  PricingRepository
	wallet   WalletCreditor

	distance DistanceLookup
	relay    TrackingRelay
	events   EventPublisher

	fare *ridecalc.FareEngine
	trm  trm.TxManager
	l    logger.Logger
	now  func() time.Time
}

type Deps struct {
	Bookings BookingRepository
	Drivers  DriverRepository
	Pricing  PricingRepository
	Wallet   WalletCreditor
	Distance DistanceLookup
	Relay    TrackingRelay
	Events   EventPublisher
	Fare     *ridecalc.FareEngine
	TRM      trm.TxManager
	Logger   logger.Logger
}

func New(d Deps) *Service {
	fare := d.Fare
	if fare == nil {
		fare = ridecalc.NewFareEngine(ridecalc.DefaultCommissionPercent)
	}
	return &Service{
		bookings: d.Bookings,
		drivers:  d.Drivers,
		pricing:  d.Pricing,
		wallet:   d.Wallet,
		distance: d.Distance,
		relay:    d.Relay,
		events:   d.Events,
		fare:     fare,
		trm:      d.TRM,
		l:        d.Logger,
		now:      time.Now,
	}
}

type AcceptCommand struct {
	BookingID uuid.UUID
	DriverID  uuid.UUID
}

type RejectCommand struct {
	BookingID uuid.UUID
	DriverID  uuid.UUID
}

type StartCommand struct {
	BookingID uuid.UUID
	DriverID  uuid.UUID
}

type CompleteCommand struct {
	BookingID uuid.UUID
	DriverID  uuid.UUID
	// DistanceKm overrides the route distance computed at start, when the driver app reports one.
	DistanceKm *float64
}

type CancelCommand struct {
	BookingID uuid.UUID
	Reason    string
}

// GetBooking returns the current state of a booking.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return b, nil
}

// Accept binds the driver to a booking that is still awaiting one.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*models.Booking, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:    types.ActionAcceptBooking,
		BookingID: cmd.BookingID.String(),
		DriverID:  cmd.DriverID.String(),
	})

	booking, err := s.bookings.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if booking.Status != types.StatusAwaitingDriver {
		return nil, wrap.Error(ctx, types.ErrBookingUnavailable)
	}

	driver, err := s.drivers.Get(ctx, cmd.DriverID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !driver.IsAvailable || driver.IsOnTrip || driver.Location == nil {
		return nil, wrap.Error(ctx, types.ErrDriverUnavailable)
	}

	// The lookup runs before the transaction so no row stays locked on a slow upstream.
	route, err := s.lookup(ctx, *driver.Location, booking.Pickup)
	if err != nil {
		return nil, err
	}

	assigned := models.AssignedTrip{
		DriverID:             cmd.DriverID,
		DriverToPickupKm:     route.DistanceKm,
		DriverToPickupEtaMin: route.DurationMin,
		PickupCharge:         ridecalc.PickupCharge(route.DistanceKm),
	}

	fn := func(ctx context.Context) error {
		ok, err := s.drivers.Reserve(ctx, cmd.DriverID)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to reserve driver: %w", err))
		}
		if !ok {
			return wrap.Error(ctx, types.ErrDriverUnavailable)
		}

		ok, err = s.bookings.Assign(ctx, cmd.BookingID, assigned)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to assign booking: %w", err))
		}
		if !ok {
			return wrap.Error(ctx, types.ErrBookingUnavailable)
		}
		return nil
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return nil, err
	}

	driverID := cmd.DriverID
	booking.Status = types.StatusDriverAssigned
	booking.DriverID = &driverID
	booking.Metrics.DriverToPickupKm = assigned.DriverToPickupKm
	booking.Metrics.DriverToPickupEtaMin = assigned.DriverToPickupEtaMin
	booking.Metrics.PickupCharge = assigned.PickupCharge

	s.startTracking(ctx, booking.ID)
	s.publish(ctx, booking, types.EventDriverAssigned, map[string]any{
		"driver_to_pickup_km": assigned.DriverToPickupKm,
		"pickup_charge":       assigned.PickupCharge,
	})

	s.l.Info(ctx, "driver assigned", "pickup_km", assigned.DriverToPickupKm, "pickup_charge", assigned.PickupCharge)
	return booking, nil
}

// Reject records that the driver declined the offer. Repeating it is a no-op.
func (s *Service) Reject(ctx context.Context, cmd RejectCommand) error {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:    types.ActionRejectBooking,
		BookingID: cmd.BookingID.String(),
		DriverID:  cmd.DriverID.String(),
	})

	ok, err := s.bookings.AddRejectedDriver(ctx, cmd.BookingID, cmd.DriverID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !ok {
		return wrap.Error(ctx, types.ErrBookingUnavailable)
	}

	s.publishEvent(ctx, models.BookingEventMessage{
		Type:       types.EventDriverRejected,
		BookingID:  cmd.BookingID,
		DriverID:   &cmd.DriverID,
		Status:     types.StatusAwaitingDriver,
		OccurredAt: s.now(),
	})

	s.l.Info(ctx, "driver rejected offer")
	return nil
}

// StartTrip moves an assigned booking to started. Only the assigned driver may call it.
func (s *Service) StartTrip(ctx context.Context, cmd StartCommand) (*models.Booking, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:    types.ActionStartTrip,
		BookingID: cmd.BookingID.String(),
		DriverID:  cmd.DriverID.String(),
	})

	booking, err := s.bookings.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if booking.Status != types.StatusDriverAssigned || !booking.IsAssignedTo(cmd.DriverID) {
		return nil, wrap.Error(ctx, types.ErrInvalidTripState)
	}

	route, err := s.lookup(ctx, booking.Pickup, booking.Drop)
	if err != nil {
		return nil, err
	}

	started := models.StartedTrip{
		DriverID:           cmd.DriverID,
		StartedAt:          s.now(),
		PickupToDropEtaMin: route.DurationMin,
		RemainingKm:        route.DistanceKm,
	}

	ok, err := s.bookings.Start(ctx, cmd.BookingID, started)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to start trip: %w", err))
	}
	if !ok {
		return nil, wrap.Error(ctx, types.ErrInvalidTripState)
	}

	booking.Status = types.StatusTripStarted
	booking.Metrics.TripStartedAt = &started.StartedAt
	booking.Metrics.PickupToDropEtaMin = started.PickupToDropEtaMin
	booking.Metrics.RemainingKm = started.RemainingKm

	s.startTracking(ctx, booking.ID)
	s.publish(ctx, booking, types.EventTripStarted, map[string]any{
		"pickup_to_drop_eta_min": started.PickupToDropEtaMin,
		"remaining_km":           started.RemainingKm,
	})

	s.l.Info(ctx, "trip started", "remaining_km", started.RemainingKm)
	return booking, nil
}

// Cancel moves a non-terminal booking to cancelled and frees its driver, if any.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*models.Booking, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:    types.ActionCancelBooking,
		BookingID: cmd.BookingID.String(),
	})

	booking, err := s.bookings.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if booking.Status.IsTerminal() {
		return nil, wrap.Error(ctx, types.ErrInvalidTripState)
	}

	from := booking.Status
	at := s.now()

	fn := func(ctx context.Context) error {
		ok, err := s.bookings.Cancel(ctx, cmd.BookingID, from, cmd.Reason, at)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to cancel booking: %w", err))
		}
		if !ok {
			return wrap.Error(ctx, types.ErrInvalidTripState)
		}

		// driver_id cannot change without the status changing, so the value read above is current.
		if booking.DriverID != nil {
			if err := s.drivers.Release(ctx, *booking.DriverID); err != nil {
				return wrap.Error(ctx, fmt.Errorf("failed to release driver: %w", err))
			}
		}
		return nil
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return nil, err
	}

	booking.Status = types.StatusCancelled
	booking.CancellationReason = cmd.Reason
	booking.CancelledAt = &at

	if from.IsActive() {
		s.stopTracking(ctx, booking.ID)
	}
	s.publish(ctx, booking, types.EventBookingCancelled, map[string]any{
		"from":   from,
		"reason": cmd.Reason,
	})

	s.l.Info(ctx, "booking cancelled", "from", from)
	return booking, nil
}

// lookup wraps every upstream failure as ErrUpstreamUnavailable; it never substitutes a zero distance.
func (s *Service) lookup(ctx context.Context, from, to models.Location) (models.RouteEstimate, error) {
	route, err := s.distance.DistanceAndDuration(ctx, from, to)
	if err != nil {
		if errors.Is(err, types.ErrUpstreamUnavailable) {
			return models.RouteEstimate{}, wrap.Error(ctx, err)
		}
		return models.RouteEstimate{}, wrap.Error(ctx, fmt.Errorf("%w: distance lookup: %v", types.ErrUpstreamUnavailable, err))
	}
	if route.DistanceKm < 0 || route.DurationMin < 0 {
		return models.RouteEstimate{}, wrap.Error(ctx, fmt.Errorf("%w: distance lookup returned negative route", types.ErrUpstreamUnavailable))
	}
	return route, nil
}
