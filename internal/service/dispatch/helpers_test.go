package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/internal/service/wallet"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var (
	testPickup = models.Location{Latitude: 43.238949, Longitude: 76.889709}
	testDrop   = models.Location{Latitude: 43.256542, Longitude: 76.928482}
)

// routeStub answers driver->pickup with toPickup and pickup->drop with toDrop.
type routeStub struct {
	toPickup models.RouteEstimate
	toDrop   models.RouteEstimate
	err      error
	calls    atomic.Int32
}

func (r *routeStub) DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error) {
	r.calls.Add(1)
	if r.err != nil {
		return models.RouteEstimate{}, r.err
	}
	if to == testDrop {
		return r.toDrop, nil
	}
	return r.toPickup, nil
}

type relayRecorder struct {
	mu      sync.Mutex
	started []uuid.UUID
	stopped []uuid.UUID
	err     error
}

func (r *relayRecorder) StartTracking(ctx context.Context, bookingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, bookingID)
	return r.err
}

func (r *relayRecorder) StopTracking(ctx context.Context, bookingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, bookingID)
	return r.err
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

func (e *eventRecorder) types() []types.BookingEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.BookingEvent, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store  *memory.Store
	svc    *Service
	route  *routeStub
	relay  *relayRecorder
	events *eventRecorder
	wallet *wallet.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	l := logger.New(io.Discard, "dispatch-test", logger.LevelError)
	store := memory.NewStore()
	store.PutPricing(&models.PricingRule{
		ID:          uuid.MustNew(),
		VehicleType: types.EconomyClass,
		BaseFare:    50,
		PerKmRate:   12,
		IsActive:    true,
	})

	route := &routeStub{
		toPickup: models.RouteEstimate{DistanceKm: 4, DurationMin: 9},
		toDrop:   models.RouteEstimate{DistanceKm: 10, DurationMin: 22},
	}
	relay := &relayRecorder{}
	events := &eventRecorder{}
	walletSvc := wallet.New(store.Drivers(), store.Ledger(), store.Withdrawals(), nil, store, l)

	svc := New(Deps{
		Bookings: store.Bookings(),
		Drivers:  store.Drivers(),
		Pricing:  store.Pricing(),
		Wallet:   walletSvc,
		Distance: route,
		Relay:    relay,
		Events:   events,
		Fare:     ridecalc.NewFareEngine(ridecalc.DefaultCommissionPercent),
		TRM:      store,
		Logger:   l,
	})

	return &fixture{store: store, svc: svc, route: route, relay: relay, events: events, wallet: walletSvc}
}

func (f *fixture) addDriver(t *testing.T) uuid.UUID {
	t.Helper()
	loc := models.Location{Latitude: 43.22, Longitude: 76.85}
	d := &models.Driver{
		ID:          uuid.MustNew(),
		IsOnline:    true,
		IsAvailable: true,
		Location:    &loc,
	}
	f.store.PutDriver(d)
	return d.ID
}

func (f *fixture) addBooking(t *testing.T, method types.PaymentMethod) uuid.UUID {
	t.Helper()
	b := &models.Booking{
		ID:            uuid.MustNew(),
		CustomerID:    uuid.MustNew(),
		Status:        types.StatusAwaitingDriver,
		VehicleType:   types.EconomyClass,
		Pickup:        testPickup,
		Drop:          testDrop,
		PaymentMethod: method,
		PaymentStatus: types.PaymentPending,
		CreatedAt:     time.Now(),
	}
	f.store.PutBooking(b)
	return b.ID
}

func (f *fixture) booking(t *testing.T, id uuid.UUID) *models.Booking {
	t.Helper()
	b, err := f.store.Bookings().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	return b
}

func (f *fixture) driver(t *testing.T, id uuid.UUID) *models.Driver {
	t.Helper()
	d, err := f.store.Drivers().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	return d
}

// startedTrip drives a fresh booking to TRIP_STARTED and returns its ids.
func (f *fixture) startedTrip(t *testing.T, method types.PaymentMethod) (bookingID, driverID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	driverID = f.addDriver(t)
	bookingID = f.addBooking(t, method)

	if _, err := f.svc.Accept(ctx, AcceptCommand{BookingID: bookingID, DriverID: driverID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.StartTrip(ctx, StartCommand{BookingID: bookingID, DriverID: driverID}); err != nil {
		t.Fatalf("start: %v", err)
	}
	return bookingID, driverID
}

func assertStatus(t *testing.T, f *fixture, id uuid.UUID, want types.BookingStatus) {
	t.Helper()
	if got := f.booking(t, id).Status; got != want {
		t.Fatalf("expected status %s, got %s", want, got)
	}
}

func assertErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
