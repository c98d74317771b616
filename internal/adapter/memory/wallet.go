package memory

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type LedgerRepo struct {
	s *Store
}

// Credit appends the entry and raises the balance. A second credit for the same booking is ignored.
func (r *LedgerRepo) Credit(ctx context.Context, tx models.WalletTransaction) (bool, error) {
	defer r.s.lock(ctx)()

	d, ok := r.s.drivers[tx.DriverID]
	if !ok {
		return false, types.ErrDriverNotFound
	}
	if tx.BookingID != nil {
		for _, e := range r.s.ledger {
			if e.Kind == types.WalletCredit && e.BookingID != nil && *e.BookingID == *tx.BookingID {
				return false, nil
			}
		}
	}

	tx.Kind = types.WalletCredit
	r.append(tx)
	d.WalletBalance += tx.Amount
	return true, nil
}

// Debit lowers the balance only if it covers the amount.
func (r *LedgerRepo) Debit(ctx context.Context, tx models.WalletTransaction) (bool, error) {
	defer r.s.lock(ctx)()

	d, ok := r.s.drivers[tx.DriverID]
	if !ok {
		return false, types.ErrDriverNotFound
	}
	if d.WalletBalance < tx.Amount {
		return false, nil
	}

	tx.Kind = types.WalletDebit
	r.append(tx)
	d.WalletBalance -= tx.Amount
	return true, nil
}

func (r *LedgerRepo) append(tx models.WalletTransaction) {
	if tx.ID.IsZero() {
		tx.ID = uuid.MustNew()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	r.s.ledger = append(r.s.ledger, tx)
}

func (r *LedgerRepo) Transactions(ctx context.Context, driverID uuid.UUID) ([]models.WalletTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.WalletTransaction
	for _, e := range r.s.ledger {
		if e.DriverID == driverID {
			out = append(out, e)
		}
	}
	return out, nil
}
