package drivergo

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var pickup = models.Location{Latitude: 43.238949, Longitude: 76.889709}

type relayRecorder struct {
	mu      sync.Mutex
	updates []models.BookingLocationUpdate
}

func (r *relayRecorder) EmitLocation(ctx context.Context, u models.BookingLocationUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.BookingEventMessage
}

func (e *eventRecorder) PublishBookingEvent(ctx context.Context, msg models.BookingEventMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, msg)
	return nil
}

type fixture struct {
	store  *memory.Store
	svc    *Service
	relay  *relayRecorder
	events *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	relay := &relayRecorder{}
	events := &eventRecorder{}
	l := logger.New(io.Discard, "driver-test", logger.LevelError)
	svc := New(store.Drivers(), store.Bookings(), relay, events, 0, l)
	return &fixture{store: store, svc: svc, relay: relay, events: events}
}

// boundDriver returns a driver on trip for a booking in the given status.
func (f *fixture) boundDriver(t *testing.T, status types.BookingStatus) (driverID, bookingID uuid.UUID) {
	t.Helper()
	driverID = uuid.MustNew()
	bookingID = uuid.MustNew()
	f.store.PutDriver(&models.Driver{ID: driverID, IsOnline: true, IsOnTrip: true})
	f.store.PutBooking(&models.Booking{
		ID:          bookingID,
		CustomerID:  uuid.MustNew(),
		DriverID:    &driverID,
		Status:      status,
		VehicleType: types.EconomyClass,
		Pickup:      pickup,
		Drop:        models.Location{Latitude: 43.25, Longitude: 76.92},
	})
	return driverID, bookingID
}

func TestUpdateLocationWithoutBooking(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	f.store.PutDriver(&models.Driver{ID: driverID, IsOnline: true, IsAvailable: true})

	res, err := f.svc.UpdateLocation(context.Background(), driverID, pickup)
	if err != nil {
		t.Fatalf("update location: %v", err)
	}
	if res.BookingID != nil || res.ArrivedAtPickup {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.relay.updates) != 0 {
		t.Fatalf("nothing to relay without a booking")
	}

	d, err := f.svc.Get(context.Background(), driverID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Location == nil || *d.Location != pickup || d.LocationUpdatedAt == nil {
		t.Fatalf("position not stored: %+v", d)
	}
}

func TestUpdateLocationUnknownDriver(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateLocation(context.Background(), uuid.MustNew(), pickup)
	if !errors.Is(err, types.ErrDriverNotFound) {
		t.Fatalf("expected ErrDriverNotFound, got %v", err)
	}
}

func TestArrivalLatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driverID, bookingID := f.boundDriver(t, types.StatusDriverAssigned)

	far := models.Location{Latitude: 43.2, Longitude: 76.85}
	res, err := f.svc.UpdateLocation(ctx, driverID, far)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.ArrivedAtPickup || res.DistanceToPickupKm == nil || *res.DistanceToPickupKm < 1 {
		t.Fatalf("far update must not latch: %+v", res)
	}

	// about 30 meters north of the pickup point
	near := models.Location{Latitude: pickup.Latitude + 0.00027, Longitude: pickup.Longitude}
	res, err = f.svc.UpdateLocation(ctx, driverID, near)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !res.ArrivedAtPickup {
		t.Fatalf("expected arrival within radius: %+v", res)
	}

	b, err := f.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	latched := b.Metrics.ArrivedAtPickupAt
	if latched == nil {
		t.Fatalf("arrival timestamp not stored")
	}

	// Moving away and back must neither clear nor rewrite the latch.
	for _, loc := range []models.Location{far, near} {
		res, err = f.svc.UpdateLocation(ctx, driverID, loc)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !res.ArrivedAtPickup {
			t.Fatalf("latch must stay set")
		}
	}
	b, _ = f.store.Bookings().Get(ctx, bookingID)
	if b.Metrics.ArrivedAtPickupAt == nil || !b.Metrics.ArrivedAtPickupAt.Equal(*latched) {
		t.Fatalf("arrival timestamp changed: %v -> %v", latched, b.Metrics.ArrivedAtPickupAt)
	}

	arrived := 0
	for _, ev := range f.events.events {
		if ev.Type == types.EventDriverArrived {
			arrived++
		}
	}
	if arrived != 1 {
		t.Fatalf("expected one arrival event, got %d", arrived)
	}

	if len(f.relay.updates) != 4 {
		t.Fatalf("expected every update relayed, got %d", len(f.relay.updates))
	}
	for _, u := range f.relay.updates {
		if u.BookingID != bookingID || u.DriverID != driverID {
			t.Fatalf("relayed to wrong booking: %+v", u)
		}
	}
}

func TestArrivalRadius(t *testing.T) {
	// ~0.000449 degrees of latitude is ~50m.
	tests := []struct {
		name    string
		dLat    float64
		arrived bool
	}{
		{"on the pickup point", 0, true},
		{"inside the radius", 0.0004, true},
		{"just outside the radius", 0.0005, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			driverID, _ := f.boundDriver(t, types.StatusDriverAssigned)

			loc := models.Location{Latitude: pickup.Latitude + tt.dLat, Longitude: pickup.Longitude}
			res, err := f.svc.UpdateLocation(context.Background(), driverID, loc)
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if res.ArrivedAtPickup != tt.arrived {
				t.Fatalf("arrived = %v, want %v (distance %v km)", res.ArrivedAtPickup, tt.arrived, *res.DistanceToPickupKm)
			}
		})
	}
}

func TestArrivalLatchDuringTrip(t *testing.T) {
	f := newFixture(t)
	driverID, _ := f.boundDriver(t, types.StatusTripStarted)

	res, err := f.svc.UpdateLocation(context.Background(), driverID, pickup)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !res.ArrivedAtPickup {
		t.Fatalf("a started trip with no arrival recorded must latch")
	}
}

func TestConcurrentArrivalLatchesOnce(t *testing.T) {
	f := newFixture(t)
	driverID, _ := f.boundDriver(t, types.StatusDriverAssigned)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.UpdateLocation(context.Background(), driverID, pickup); err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(f.events.events); got != 1 {
		t.Fatalf("expected one arrival event, got %d", got)
	}
}

func TestGoOnlineOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	idle := uuid.MustNew()
	f.store.PutDriver(&models.Driver{ID: idle, IsAvailable: true})
	if err := f.svc.GoOnline(ctx, idle); err != nil {
		t.Fatalf("online: %v", err)
	}
	if err := f.svc.GoOffline(ctx, idle); err != nil {
		t.Fatalf("offline: %v", err)
	}
	d, _ := f.svc.Get(ctx, idle)
	if d.IsOnline || !d.IsAvailable {
		t.Fatalf("offline must only clear presence: %+v", d)
	}

	busy, _ := f.boundDriver(t, types.StatusTripStarted)
	if err := f.svc.GoOffline(ctx, busy); !errors.Is(err, types.ErrDriverUnavailable) {
		t.Fatalf("expected ErrDriverUnavailable, got %v", err)
	}
}
