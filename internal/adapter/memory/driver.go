package memory

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type DriverRepo struct {
	s *Store
}

func (r *DriverRepo) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.drivers[id]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	return cloneDriver(d), nil
}

func (r *DriverRepo) update(ctx context.Context, id uuid.UUID, cond func(d *models.Driver) bool, fn func(d *models.Driver)) (bool, error) {
	defer r.s.lock(ctx)()

	d, ok := r.s.drivers[id]
	if !ok {
		return false, types.ErrDriverNotFound
	}
	if cond != nil && !cond(d) {
		return false, nil
	}
	fn(d)
	d.UpdatedAt = time.Now()
	return true, nil
}

func (r *DriverRepo) Reserve(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.update(ctx, id,
		func(d *models.Driver) bool { return d.IsAvailable && !d.IsOnTrip },
		func(d *models.Driver) {
			d.IsAvailable = false
			d.IsOnTrip = true
		})
}

func (r *DriverRepo) Release(ctx context.Context, id uuid.UUID) error {
	_, err := r.update(ctx, id, nil, func(d *models.Driver) {
		d.IsAvailable = true
		d.IsOnTrip = false
	})
	return err
}

func (r *DriverRepo) UpdateLocation(ctx context.Context, id uuid.UUID, loc models.Location, at time.Time) error {
	_, err := r.update(ctx, id, nil, func(d *models.Driver) {
		d.Location = &loc
		d.LocationUpdatedAt = &at
	})
	return err
}

func (r *DriverRepo) SetOnline(ctx context.Context, id uuid.UUID) error {
	_, err := r.update(ctx, id, nil, func(d *models.Driver) { d.IsOnline = true })
	return err
}

func (r *DriverRepo) SetOffline(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.update(ctx, id,
		func(d *models.Driver) bool { return !d.IsOnTrip },
		func(d *models.Driver) { d.IsOnline = false })
}

func (r *DriverRepo) SetBankDetails(ctx context.Context, id uuid.UUID, bank models.BankDetails) error {
	_, err := r.update(ctx, id, nil, func(d *models.Driver) { d.Bank = &bank })
	return err
}
