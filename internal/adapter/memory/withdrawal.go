package memory

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type WithdrawalRepo struct {
	s *Store
}

func (r *WithdrawalRepo) Create(ctx context.Context, w *models.Withdrawal) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.drivers[w.DriverID]; !ok {
		return types.ErrDriverNotFound
	}
	r.s.withdrawals[w.ID] = cloneWithdrawal(w)
	return nil
}

func (r *WithdrawalRepo) Get(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, types.ErrWithdrawalNotFound
	}
	return cloneWithdrawal(w), nil
}

// Resolve moves a pending withdrawal to status. ok is false when it was not pending.
func (r *WithdrawalRepo) Resolve(ctx context.Context, id uuid.UUID, status types.WithdrawalStatus, by uuid.UUID, note string, at time.Time) (*models.Withdrawal, bool, error) {
	defer r.s.lock(ctx)()

	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, false, types.ErrWithdrawalNotFound
	}
	if w.Status != types.WithdrawalPending {
		return nil, false, nil
	}
	w.Status = status
	w.ResolvedAt = &at
	w.ResolvedBy = &by
	w.Note = note
	return cloneWithdrawal(w), true, nil
}

func (r *WithdrawalRepo) List(ctx context.Context, status types.WithdrawalStatus) ([]*models.Withdrawal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := sortedValues(r.s.withdrawals, func(a, b *models.Withdrawal) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	out := make([]*models.Withdrawal, 0, len(all))
	for _, w := range all {
		if status == "" || w.Status == status {
			out = append(out, cloneWithdrawal(w))
		}
	}
	return out, nil
}
