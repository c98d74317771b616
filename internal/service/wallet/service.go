package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var (
	ErrAlreadyCredited      = errors.New("booking earning already credited")
	ErrWithdrawalNotPaid    = fmt.Errorf("%w: withdrawal is not approved", types.ErrPreconditionFailed)
	ErrIncompleteBankRecord = fmt.Errorf("%w: bank name, holder name, account number and routing code are required", types.ErrInvalidInput)
)

/*
Service owns the driver wallet. Funds are reserved at approval time:
a request only checks that the balance covers the amount, approval re-checks
and debits atomically, rejection never touches the balance.
*/
type Service struct {
	drivers     DriverRepository
	ledger      LedgerRepository
	withdrawals WithdrawalRepository
	receipts    ReceiptRenderer
	trm         trm.TxManager
	l           logger.Logger
	now         func() time.Time
}

func New(drivers DriverRepository, ledger LedgerRepository, withdrawals WithdrawalRepository, receipts ReceiptRenderer, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		drivers:     drivers,
		ledger:      ledger,
		withdrawals: withdrawals,
		receipts:    receipts,
		trm:         trm,
		l:           l,
		now:         time.Now,
	}
}

// Credit adds a trip earning to the driver's balance. It is called inside the completion unit.
func (s *Service) Credit(ctx context.Context, driverID, bookingID uuid.UUID, amount int64) error {
	if amount < 0 {
		return wrap.Error(ctx, types.ErrInvalidAmount)
	}

	ok, err := s.ledger.Credit(ctx, models.WalletTransaction{
		ID:        uuid.MustNew(),
		DriverID:  driverID,
		Kind:      types.WalletCredit,
		Amount:    amount,
		BookingID: &bookingID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to credit wallet: %w", err))
	}
	if !ok {
		return wrap.Error(ctx, ErrAlreadyCredited)
	}
	return nil
}

// RequestWithdrawal records a pending payout. The balance is not touched.
func (s *Service) RequestWithdrawal(ctx context.Context, driverID uuid.UUID, amount int64) (*models.Withdrawal, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:   types.ActionRequestWithdrawal,
		DriverID: driverID.String(),
	})

	if amount <= 0 {
		return nil, wrap.Error(ctx, types.ErrInvalidAmount)
	}

	driver, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if driver.Bank == nil {
		return nil, wrap.Error(ctx, types.ErrBankDetailsMissing)
	}
	if driver.WalletBalance < amount {
		return nil, wrap.Error(ctx, types.ErrInsufficientBalance)
	}

	w := &models.Withdrawal{
		ID:        uuid.MustNew(),
		DriverID:  driverID,
		Amount:    amount,
		Status:    types.WithdrawalPending,
		CreatedAt: s.now(),
	}
	if err := s.withdrawals.Create(ctx, w); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to create withdrawal: %w", err))
	}

	s.l.Info(ctx, "withdrawal requested", "withdrawal_id", w.ID.String(), "amount", amount)
	return w, nil
}

// ApproveWithdrawal resolves a pending withdrawal and debits the wallet in one unit.
// If the balance drifted below the amount since the request, nothing changes.
func (s *Service) ApproveWithdrawal(ctx context.Context, id, adminID uuid.UUID, note string) (*models.Withdrawal, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action: types.ActionApproveWithdrawal,
		UserID: adminID.String(),
	})

	var approved *models.Withdrawal
	fn := func(ctx context.Context) error {
		w, err := s.resolve(ctx, id, types.WithdrawalApproved, adminID, note)
		if err != nil {
			return err
		}

		ok, err := s.ledger.Debit(ctx, models.WalletTransaction{
			ID:           uuid.MustNew(),
			DriverID:     w.DriverID,
			Kind:         types.WalletDebit,
			Amount:       w.Amount,
			WithdrawalID: &w.ID,
			CreatedAt:    s.now(),
		})
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to debit wallet: %w", err))
		}
		if !ok {
			return wrap.Error(wrap.WithDriverID(ctx, w.DriverID.String()), types.ErrInsufficientBalance)
		}

		approved = w
		return nil
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return nil, err
	}

	s.l.Info(wrap.WithDriverID(ctx, approved.DriverID.String()), "withdrawal approved", "withdrawal_id", id.String(), "amount", approved.Amount)
	return approved, nil
}

// RejectWithdrawal resolves a pending withdrawal without any balance change.
func (s *Service) RejectWithdrawal(ctx context.Context, id, adminID uuid.UUID, note string) (*models.Withdrawal, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action: types.ActionRejectWithdrawal,
		UserID: adminID.String(),
	})

	w, err := s.resolve(ctx, id, types.WithdrawalRejected, adminID, note)
	if err != nil {
		return nil, err
	}

	s.l.Info(wrap.WithDriverID(ctx, w.DriverID.String()), "withdrawal rejected", "withdrawal_id", id.String())
	return w, nil
}

func (s *Service) resolve(ctx context.Context, id uuid.UUID, status types.WithdrawalStatus, adminID uuid.UUID, note string) (*models.Withdrawal, error) {
	w, ok, err := s.withdrawals.Resolve(ctx, id, status, adminID, note, s.now())
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !ok {
		return nil, wrap.Error(ctx, types.ErrNoPendingWithdrawal)
	}
	return w, nil
}

// AddBankDetails replaces the driver's bank record.
func (s *Service) AddBankDetails(ctx context.Context, driverID uuid.UUID, bank models.BankDetails) error {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:   types.ActionAddBankDetails,
		DriverID: driverID.String(),
	})

	bank = models.BankDetails{
		BankName:      strings.TrimSpace(bank.BankName),
		HolderName:    strings.TrimSpace(bank.HolderName),
		AccountNumber: strings.TrimSpace(bank.AccountNumber),
		RoutingCode:   strings.TrimSpace(bank.RoutingCode),
	}
	if bank.BankName == "" || bank.HolderName == "" || bank.AccountNumber == "" || bank.RoutingCode == "" {
		return wrap.Error(ctx, ErrIncompleteBankRecord)
	}

	if err := s.drivers.SetBankDetails(ctx, driverID, bank); err != nil {
		return wrap.Error(ctx, err)
	}

	s.l.Info(ctx, "bank details updated", "account", bank.MaskedAccount())
	return nil
}

func (s *Service) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	w, err := s.withdrawals.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return w, nil
}

func (s *Service) ListWithdrawals(ctx context.Context, status types.WithdrawalStatus) ([]*models.Withdrawal, error) {
	list, err := s.withdrawals.List(ctx, status)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return list, nil
}

func (s *Service) Transactions(ctx context.Context, driverID uuid.UUID) ([]models.WalletTransaction, error) {
	txs, err := s.ledger.Transactions(ctx, driverID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return txs, nil
}

// Receipt renders the payout receipt of an approved withdrawal.
func (s *Service) Receipt(ctx context.Context, id uuid.UUID) ([]byte, error) {
	w, err := s.withdrawals.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if w.Status != types.WithdrawalApproved {
		return nil, wrap.Error(ctx, ErrWithdrawalNotPaid)
	}

	driver, err := s.drivers.Get(ctx, w.DriverID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	pdf, err := s.receipts.Render(w, driver)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to render receipt: %w", err))
	}
	return pdf, nil
}
