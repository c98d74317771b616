// Package memory keeps dispatch state in process. Every conditional update
// runs under one lock, so it honours the same single-winner contract as the
// Postgres repositories.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type ctxKeyTx struct{}

type Store struct {
	txMu sync.Mutex // serializes Do
	mu   sync.RWMutex

	bookings    map[uuid.UUID]*models.Booking
	drivers     map[uuid.UUID]*models.Driver
	pricing     map[types.VehicleClass]*models.PricingRule
	withdrawals map[uuid.UUID]*models.Withdrawal
	ledger      []models.WalletTransaction
}

func NewStore() *Store {
	return &Store{
		bookings:    make(map[uuid.UUID]*models.Booking),
		drivers:     make(map[uuid.UUID]*models.Driver),
		pricing:     make(map[types.VehicleClass]*models.PricingRule),
		withdrawals: make(map[uuid.UUID]*models.Withdrawal),
	}
}

// Do runs fn as one unit: on error every change made by fn is rolled back.
// Nested calls join the outer unit.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(ctxKeyTx{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, ctxKeyTx{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lock takes the write lock. Outside a unit of work it also waits for any
// running one, so a rollback never discards a concurrent write.
func (s *Store) lock(ctx context.Context) (unlock func()) {
	inTx := ctx.Value(ctxKeyTx{}) != nil
	if !inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !inTx {
			s.txMu.Unlock()
		}
	}
}

type snapshot struct {
	bookings    map[uuid.UUID]*models.Booking
	drivers     map[uuid.UUID]*models.Driver
	withdrawals map[uuid.UUID]*models.Withdrawal
	ledger      []models.WalletTransaction
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		bookings:    make(map[uuid.UUID]*models.Booking, len(s.bookings)),
		drivers:     make(map[uuid.UUID]*models.Driver, len(s.drivers)),
		withdrawals: make(map[uuid.UUID]*models.Withdrawal, len(s.withdrawals)),
		ledger:      slices.Clone(s.ledger),
	}
	for id, b := range s.bookings {
		snap.bookings[id] = cloneBooking(b)
	}
	for id, d := range s.drivers {
		snap.drivers[id] = cloneDriver(d)
	}
	for id, w := range s.withdrawals {
		snap.withdrawals[id] = cloneWithdrawal(w)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookings = snap.bookings
	s.drivers = snap.drivers
	s.withdrawals = snap.withdrawals
	s.ledger = snap.ledger
}

// PutBooking inserts or replaces a booking, the way the request-creation path would.
func (s *Store) PutBooking(b *models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = cloneBooking(b)
}

func (s *Store) PutDriver(d *models.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.ID] = cloneDriver(d)
}

func (s *Store) PutPricing(r *models.PricingRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.pricing[r.VehicleType] = &cp
}

func (s *Store) Bookings() *BookingRepo       { return &BookingRepo{s: s} }
func (s *Store) Drivers() *DriverRepo         { return &DriverRepo{s: s} }
func (s *Store) Pricing() *PricingRepo        { return &PricingRepo{s: s} }
func (s *Store) Withdrawals() *WithdrawalRepo { return &WithdrawalRepo{s: s} }
func (s *Store) Ledger() *LedgerRepo          { return &LedgerRepo{s: s} }

func cloneBooking(b *models.Booking) *models.Booking {
	cp := *b
	cp.RejectedDrivers = slices.Clone(b.RejectedDrivers)
	if b.DriverID != nil {
		id := *b.DriverID
		cp.DriverID = &id
	}
	if b.Fare != nil {
		f := *b.Fare
		cp.Fare = &f
	}
	cp.Metrics.ArrivedAtPickupAt = cloneTime(b.Metrics.ArrivedAtPickupAt)
	cp.Metrics.TripStartedAt = cloneTime(b.Metrics.TripStartedAt)
	cp.Metrics.TripEndedAt = cloneTime(b.Metrics.TripEndedAt)
	cp.CancelledAt = cloneTime(b.CancelledAt)
	return &cp
}

func cloneDriver(d *models.Driver) *models.Driver {
	cp := *d
	if d.Location != nil {
		loc := *d.Location
		cp.Location = &loc
	}
	if d.Bank != nil {
		bank := *d.Bank
		cp.Bank = &bank
	}
	cp.LocationUpdatedAt = cloneTime(d.LocationUpdatedAt)
	return &cp
}

func cloneWithdrawal(w *models.Withdrawal) *models.Withdrawal {
	cp := *w
	cp.ResolvedAt = cloneTime(w.ResolvedAt)
	if w.ResolvedBy != nil {
		id := *w.ResolvedBy
		cp.ResolvedBy = &id
	}
	return &cp
}

func cloneTime[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// sortedValues returns the values of m in a stable order for list endpoints.
func sortedValues[V any](m map[uuid.UUID]V, less func(a, b V) int) []V {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, less)
	return out
}
