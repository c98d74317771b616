package drivergo

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*
Service tracks drivers: presence, position, and the pickup-arrival latch
of the booking a driver is currently bound to.
*/
type Service struct {
	drivers  DriverRepo
	bookings BookingRepo
	relay    LocationRelay
	events   EventPublisher

	arrivalRadiusKm float64
	l               logger.Logger
	now             func() time.Time
}

// New returns a new instance of the driver service with all dependencies injected.
func New(drivers DriverRepo, bookings BookingRepo, relay LocationRelay, events EventPublisher, arrivalRadiusKm float64, l logger.Logger) *Service {
	if arrivalRadiusKm <= 0 {
		arrivalRadiusKm = ridecalc.DefaultArrivalRadiusKm
	}
	return &Service{
		drivers:         drivers,
		bookings:        bookings,
		relay:           relay,
		events:          events,
		arrivalRadiusKm: arrivalRadiusKm,
		l:               l,
		now:             time.Now,
	}
}

func (s *Service) Get(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	d, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return d, nil
}

// GoOnline marks the driver online. Availability is managed by dispatch only.
func (s *Service) GoOnline(ctx context.Context, driverID uuid.UUID) error {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionDriverGoOnline, DriverID: driverID.String()})

	if err := s.drivers.SetOnline(ctx, driverID); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to set driver online: %w", err))
	}

	s.l.Info(ctx, "driver is online")
	return nil
}

// GoOffline is refused while the driver is on a trip.
func (s *Service) GoOffline(ctx context.Context, driverID uuid.UUID) error {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionDriverGoOffline, DriverID: driverID.String()})

	ok, err := s.drivers.SetOffline(ctx, driverID)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to set driver offline: %w", err))
	}
	if !ok {
		return wrap.Error(ctx, types.ErrDriverUnavailable)
	}

	s.l.Info(ctx, "driver is offline")
	return nil
}
