package dispatch

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// The helpers below run after a transition committed. Their failures are logged only.

func (s *Service) startTracking(ctx context.Context, bookingID uuid.UUID) {
	if s.relay == nil {
		return
	}
	if err := s.relay.StartTracking(ctx, bookingID); err != nil {
		s.l.Warn(wrap.WithAction(ctx, types.ActionExternalServiceFailed), "failed to signal tracking start", "error", err.Error())
	}
}

func (s *Service) stopTracking(ctx context.Context, bookingID uuid.UUID) {
	if s.relay == nil {
		return
	}
	if err := s.relay.StopTracking(ctx, bookingID); err != nil {
		s.l.Warn(wrap.WithAction(ctx, types.ActionExternalServiceFailed), "failed to signal tracking stop", "error", err.Error())
	}
}

func (s *Service) publish(ctx context.Context, b *models.Booking, event types.BookingEvent, payload map[string]any) {
	s.publishEvent(ctx, models.BookingEventMessage{
		Type:       event,
		BookingID:  b.ID,
		DriverID:   b.DriverID,
		Status:     b.Status,
		OccurredAt: s.now(),
		Payload:    payload,
	})
}

func (s *Service) publishEvent(ctx context.Context, msg models.BookingEventMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBookingEvent(ctx, msg); err != nil {
		s.l.Warn(wrap.WithAction(ctx, types.ActionPublishEventFailed), "failed to publish booking event", "event", msg.Type, "error", err.Error())
	}
}
