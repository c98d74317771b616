package wallet

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

/*=================Driver Repository======================*/

type DriverRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	SetBankDetails(ctx context.Context, id uuid.UUID, bank models.BankDetails) error
}

/*=================Ledger Repository======================*/

// LedgerRepository changes the balance together with an append-only ledger entry.
type LedgerRepository interface {
	// Credit returns false when the booking was already credited.
	Credit(ctx context.Context, tx models.WalletTransaction) (bool, error)
	// Debit returns false when the balance does not cover the amount.
	Debit(ctx context.Context, tx models.WalletTransaction) (bool, error)
	Transactions(ctx context.Context, driverID uuid.UUID) ([]models.WalletTransaction, error)
}

/*=================Withdrawal Repository==================*/

type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	Get(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	// Resolve moves a PENDING withdrawal to status. ok is false when it was not pending.
	Resolve(ctx context.Context, id uuid.UUID, status types.WithdrawalStatus, by uuid.UUID, note string, at time.Time) (w *models.Withdrawal, ok bool, err error)
	// List returns withdrawals with the given status, or all of them for "".
	List(ctx context.Context, status types.WithdrawalStatus) ([]*models.Withdrawal, error)
}

/*=================Receipt================================*/

type ReceiptRenderer interface {
	Render(w *models.Withdrawal, d *models.Driver) ([]byte, error)
}
