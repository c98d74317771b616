// Package kafka streams committed booking transitions to reporting consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

// Writer is implemented by *kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type EventPublisher struct {
	writer  Writer
	timeout time.Duration
}

// NewEventPublisher writes to topic, balancing by least bytes. Messages are keyed
// by booking id so one booking's events stay ordered within a partition.
func NewEventPublisher(brokers []string, topic string, timeout time.Duration) *EventPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewEventPublisherWithWriter(w, timeout)
}

func NewEventPublisherWithWriter(w Writer, timeout time.Duration) *EventPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &EventPublisher{writer: w, timeout: timeout}
}

func (p *EventPublisher) PublishBookingEvent(ctx context.Context, event models.BookingEventMessage) error {
	const op = "EventPublisher.PublishBookingEvent"

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.BookingID.String()),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "request_id", Value: []byte(wrap.GetRequestID(ctx))},
		},
	}

	err = p.writer.WriteMessages(ctx, msg)
	metrics.RecordKafkaPublish(event.Type.String(), err)
	if err != nil {
		return wrap.Error(wrap.WithAction(ctx, types.ActionPublishEventFailed), fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (p *EventPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
