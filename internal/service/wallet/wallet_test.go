package wallet

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

var testBank = &models.BankDetails{
	BankName:      "Kaspi",
	HolderName:    "Aidar N.",
	AccountNumber: "KZ86125KZT5004100100",
	RoutingCode:   "CASPKZKA",
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	l := logger.New(io.Discard, "wallet-test", logger.LevelError)
	return New(store.Drivers(), store.Ledger(), store.Withdrawals(), stubRenderer{}, store, l), store
}

func addDriver(t *testing.T, store *memory.Store, balance int64, bank *models.BankDetails) uuid.UUID {
	t.Helper()
	d := &models.Driver{ID: uuid.MustNew(), IsOnline: true, IsAvailable: true, Bank: bank}
	store.PutDriver(d)
	if balance > 0 {
		ok, err := store.Ledger().Credit(context.Background(), models.WalletTransaction{
			DriverID:  d.ID,
			Amount:    balance,
			BookingID: ptr(uuid.MustNew()),
		})
		if err != nil || !ok {
			t.Fatalf("seed balance: ok=%v err=%v", ok, err)
		}
	}
	return d.ID
}

func balanceOf(t *testing.T, store *memory.Store, id uuid.UUID) int64 {
	t.Helper()
	d, err := store.Drivers().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	return d.WalletBalance
}

func ptr[T any](v T) *T { return &v }

type stubRenderer struct{}

func (stubRenderer) Render(w *models.Withdrawal, d *models.Driver) ([]byte, error) {
	return []byte("%PDF-" + w.ID.String()), nil
}

func TestCredit(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	driverID := addDriver(t, store, 0, nil)
	bookingID := uuid.MustNew()

	if err := s.Credit(ctx, driverID, bookingID, 152); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := s.Credit(ctx, driverID, bookingID, 152); !errors.Is(err, ErrAlreadyCredited) {
		t.Fatalf("expected ErrAlreadyCredited, got %v", err)
	}
	if err := s.Credit(ctx, driverID, uuid.MustNew(), -1); !errors.Is(err, types.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if got := balanceOf(t, store, driverID); got != 152 {
		t.Fatalf("expected 152, got %d", got)
	}
}

func TestRequestWithdrawal(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		balance int64
		bank    *models.BankDetails
		amount  int64
		wantErr error
	}{
		{name: "ok", balance: 500, bank: testBank, amount: 300},
		{name: "whole balance", balance: 500, bank: testBank, amount: 500},
		{name: "no bank details", balance: 500, amount: 100, wantErr: types.ErrBankDetailsMissing},
		{name: "over balance", balance: 500, bank: testBank, amount: 501, wantErr: types.ErrInsufficientBalance},
		{name: "zero amount", balance: 500, bank: testBank, amount: 0, wantErr: types.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driverID := addDriver(t, store, tt.balance, tt.bank)
			w, err := s.RequestWithdrawal(ctx, driverID, tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if w.Status != types.WithdrawalPending || w.Amount != tt.amount {
				t.Fatalf("unexpected withdrawal %+v", w)
			}
			if got := balanceOf(t, store, driverID); got != tt.balance {
				t.Fatalf("request must not move money, balance %d", got)
			}
		})
	}

	if _, err := s.RequestWithdrawal(ctx, uuid.MustNew(), 10); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found for unknown driver, got %v", err)
	}
}

func TestApproveWithdrawal(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	admin := uuid.MustNew()
	driverID := addDriver(t, store, 500, testBank)

	w, err := s.RequestWithdrawal(ctx, driverID, 300)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	approved, err := s.ApproveWithdrawal(ctx, w.ID, admin, "paid")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != types.WithdrawalApproved || approved.ResolvedAt == nil || *approved.ResolvedBy != admin {
		t.Fatalf("unexpected withdrawal %+v", approved)
	}
	if got := balanceOf(t, store, driverID); got != 200 {
		t.Fatalf("expected 200 after approval, got %d", got)
	}

	_, err = s.ApproveWithdrawal(ctx, w.ID, admin, "")
	if !errors.Is(err, types.ErrNoPendingWithdrawal) || !errors.Is(err, types.ErrPreconditionFailed) {
		t.Fatalf("expected ErrNoPendingWithdrawal, got %v", err)
	}
	_, err = s.RejectWithdrawal(ctx, w.ID, admin, "")
	if !errors.Is(err, types.ErrNoPendingWithdrawal) {
		t.Fatalf("expected ErrNoPendingWithdrawal, got %v", err)
	}
	if got := balanceOf(t, store, driverID); got != 200 {
		t.Fatalf("second resolution must not move money, got %d", got)
	}

	txs, err := s.Transactions(ctx, driverID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	last := txs[len(txs)-1]
	if last.Kind != types.WalletDebit || last.Amount != 300 || last.WithdrawalID == nil || *last.WithdrawalID != w.ID {
		t.Fatalf("expected debit entry for the withdrawal, got %+v", last)
	}
}

func TestApproveWithdrawalBalanceDrift(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	admin := uuid.MustNew()
	driverID := addDriver(t, store, 500, testBank)

	first, err := s.RequestWithdrawal(ctx, driverID, 400)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	second, err := s.RequestWithdrawal(ctx, driverID, 400)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := s.ApproveWithdrawal(ctx, first.ID, admin, ""); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	_, err = s.ApproveWithdrawal(ctx, second.ID, admin, "")
	if !errors.Is(err, types.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// The failed approval must leave the request pending and the balance intact.
	w, err := s.GetWithdrawal(ctx, second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != types.WithdrawalPending {
		t.Fatalf("expected PENDING after failed approval, got %s", w.Status)
	}
	if got := balanceOf(t, store, driverID); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}

	if _, err := s.RejectWithdrawal(ctx, second.ID, admin, "insufficient funds"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := balanceOf(t, store, driverID); got != 100 {
		t.Fatalf("reject must not move money, got %d", got)
	}
}

// Money is conserved: the final balance equals credits minus approved amounts.
func TestConcurrentResolutionConservesMoney(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	admin := uuid.MustNew()

	const initial = 1000
	driverID := addDriver(t, store, initial, testBank)

	var ids []uuid.UUID
	for range 10 {
		w, err := s.RequestWithdrawal(ctx, driverID, 150)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		ids = append(ids, w.ID)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		for range 2 {
			wg.Add(1)
			go func(approve bool) {
				defer wg.Done()
				if approve {
					_, _ = s.ApproveWithdrawal(ctx, id, admin, "")
				} else {
					_, _ = s.RejectWithdrawal(ctx, id, admin, "")
				}
			}(i%3 != 0)
		}
	}
	wg.Wait()

	list, err := s.ListWithdrawals(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	var approved int64
	for _, w := range list {
		switch w.Status {
		case types.WithdrawalApproved:
			approved += w.Amount
		case types.WithdrawalPending:
			// only an approval refused for balance leaves a request pending
		}
	}

	got := balanceOf(t, store, driverID)
	if got != initial-approved {
		t.Fatalf("balance %d, want %d", got, initial-approved)
	}
	if got < 0 {
		t.Fatalf("balance went negative: %d", got)
	}

	pending, err := s.ListWithdrawals(ctx, types.WithdrawalPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	for _, w := range pending {
		if w.Amount <= got {
			t.Fatalf("withdrawal %s left pending although balance %d covers it", w.ID, got)
		}
	}
}

func TestAddBankDetails(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	driverID := addDriver(t, store, 100, nil)

	err := s.AddBankDetails(ctx, driverID, models.BankDetails{BankName: "Kaspi", HolderName: "  "})
	if !errors.Is(err, ErrIncompleteBankRecord) || !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("expected ErrIncompleteBankRecord as invalid input, got %v", err)
	}

	in := *testBank
	in.AccountNumber = "  " + in.AccountNumber + " "
	if err := s.AddBankDetails(ctx, driverID, in); err != nil {
		t.Fatalf("add bank details: %v", err)
	}

	d, err := store.Drivers().Get(ctx, driverID)
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	if d.Bank == nil || d.Bank.AccountNumber != testBank.AccountNumber {
		t.Fatalf("bank details not stored trimmed: %+v", d.Bank)
	}

	if _, err := s.RequestWithdrawal(ctx, driverID, 100); err != nil {
		t.Fatalf("request after adding bank details: %v", err)
	}
}

func TestReceipt(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	driverID := addDriver(t, store, 300, testBank)

	w, err := s.RequestWithdrawal(ctx, driverID, 100)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := s.Receipt(ctx, w.ID); !errors.Is(err, ErrWithdrawalNotPaid) {
		t.Fatalf("expected ErrWithdrawalNotPaid, got %v", err)
	}

	if _, err := s.ApproveWithdrawal(ctx, w.ID, uuid.MustNew(), ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	pdf, err := s.Receipt(ctx, w.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if string(pdf) != "%PDF-"+w.ID.String() {
		t.Fatalf("unexpected receipt %q", pdf)
	}
}
