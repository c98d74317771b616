package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakePublisher struct {
	mu        sync.Mutex
	exchanges map[string]string
	sent      []published
	failures  int
}

func (f *fakePublisher) DeclareExchange(ctx context.Context, name, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exchanges == nil {
		f.exchanges = make(map[string]string)
	}
	f.exchanges[name] = kind
	return nil
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("channel closed")
	}
	f.sent = append(f.sent, published{exchange: exchange, key: routingKey, msg: msg})
	return nil
}

func newTestRelay(t *testing.T, pub *fakePublisher) *TrackingRelay {
	t.Helper()
	r, err := NewTrackingRelay(context.Background(), pub, logger.New(io.Discard, "rabbit-test", logger.LevelError))
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	r.backoff = time.Millisecond
	return r
}

func TestTrackingRelayDeclaresExchanges(t *testing.T) {
	pub := &fakePublisher{}
	newTestRelay(t, pub)

	if pub.exchanges[ExchangeTrackingTopic] != amqp.ExchangeTopic || pub.exchanges[ExchangeLocationFanout] != amqp.ExchangeFanout {
		t.Fatalf("unexpected exchanges %v", pub.exchanges)
	}
}

func TestTrackingSignals(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRelay(t, pub)
	bookingID := uuid.MustNew()
	ctx := wrap.WithRequestID(context.Background(), "req-1")

	if err := r.StartTracking(ctx, bookingID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.StopTracking(ctx, bookingID); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if len(pub.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.sent))
	}

	tests := []struct {
		key      string
		tracking bool
	}{
		{key: "tracking.start." + bookingID.String(), tracking: true},
		{key: "tracking.stop." + bookingID.String(), tracking: false},
	}
	for i, tt := range tests {
		got := pub.sent[i]
		if got.exchange != ExchangeTrackingTopic || got.key != tt.key {
			t.Fatalf("message %d went to %s/%s", i, got.exchange, got.key)
		}
		if got.msg.CorrelationId != "req-1" || got.msg.ContentType != "application/json" {
			t.Fatalf("unexpected publishing headers %+v", got.msg)
		}

		var signal models.TrackingSignal
		if err := json.Unmarshal(got.msg.Body, &signal); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if signal.BookingID != bookingID || signal.Tracking != tt.tracking {
			t.Fatalf("unexpected signal %+v", signal)
		}
	}
}

func TestEmitLocationRetries(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	r := newTestRelay(t, pub)

	update := models.BookingLocationUpdate{
		BookingID: uuid.MustNew(),
		DriverID:  uuid.MustNew(),
		Location:  models.Location{Latitude: 43.2, Longitude: 76.9},
		Timestamp: time.Now(),
	}
	if err := r.EmitLocation(context.Background(), update); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(pub.sent) != 1 || pub.sent[0].exchange != ExchangeLocationFanout {
		t.Fatalf("expected one fanout message, got %+v", pub.sent)
	}

	pub.failures = 10
	if err := r.EmitLocation(context.Background(), update); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
}
