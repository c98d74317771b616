package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

const (
	ExchangeTrackingTopic  = "tracking_topic"
	ExchangeLocationFanout = "location_fanout"

	keyTrackingStart = "tracking.start"
	keyTrackingStop  = "tracking.stop"
)

// Publisher is the part of pkg/rabbit the relay needs.
type Publisher interface {
	DeclareExchange(ctx context.Context, name, kind string) error
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// TrackingRelay tells the location service which bookings to track and
// fans driver positions out to it.
type TrackingRelay struct {
	client   Publisher
	attempts int
	backoff  time.Duration
	now      func() time.Time
	l        logger.Logger
}

func NewTrackingRelay(ctx context.Context, client Publisher, l logger.Logger) (*TrackingRelay, error) {
	exchanges := map[string]string{
		ExchangeTrackingTopic:  amqp.ExchangeTopic,
		ExchangeLocationFanout: amqp.ExchangeFanout,
	}
	for name, kind := range exchanges {
		if err := client.DeclareExchange(ctx, name, kind); err != nil {
			return nil, err
		}
	}

	return &TrackingRelay{
		client:   client,
		attempts: 3,
		backoff:  200 * time.Millisecond,
		now:      time.Now,
		l:        l,
	}, nil
}

func (r *TrackingRelay) StartTracking(ctx context.Context, bookingID uuid.UUID) error {
	return r.signal(ctx, keyTrackingStart, bookingID, true)
}

func (r *TrackingRelay) StopTracking(ctx context.Context, bookingID uuid.UUID) error {
	return r.signal(ctx, keyTrackingStop, bookingID, false)
}

func (r *TrackingRelay) signal(ctx context.Context, key string, bookingID uuid.UUID, tracking bool) error {
	ctx = wrap.WithAction(ctx, "publish_"+key)

	msg := models.TrackingSignal{
		BookingID: bookingID,
		Tracking:  tracking,
		Timestamp: r.now(),
	}
	routingKey := fmt.Sprintf("%s.%s", key, bookingID)

	if err := r.publish(ctx, ExchangeTrackingTopic, routingKey, msg); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}

// EmitLocation forwards a driver position bound to an active booking.
func (r *TrackingRelay) EmitLocation(ctx context.Context, update models.BookingLocationUpdate) error {
	ctx = wrap.WithAction(ctx, "publish_location_update")

	if err := r.publish(ctx, ExchangeLocationFanout, "", update); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}

func (r *TrackingRelay) publish(ctx context.Context, exchange, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Body:          body,
		Timestamp:     r.now(),
		CorrelationId: wrap.GetRequestID(ctx),
	}

	err = retry(ctx, r.attempts, r.backoff, func() error {
		return r.client.Publish(ctx, exchange, routingKey, pub)
	})
	metrics.RecordRabbitMQPublish(exchange, err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}
	return nil
}
