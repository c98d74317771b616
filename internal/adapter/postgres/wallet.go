package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// LedgerRepo keeps drivers.wallet_balance and the wallet_transactions log in step:
// every statement changes both or neither.
type LedgerRepo struct {
	db *pgxpool.Pool
}

func NewLedgerRepo(db *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Credit appends a CREDIT entry and raises the balance. The unique index on
// booking credits turns a second credit for the same booking into a no-op.
func (r *LedgerRepo) Credit(ctx context.Context, tx models.WalletTransaction) (bool, error) {
	const op = "LedgerRepo.Credit"
	query := `
		WITH entry AS (
			INSERT INTO wallet_transactions (id, driver_id, kind, amount, booking_id, created_at)
			VALUES ($1, $2, 'CREDIT', $3::bigint, $4, $5)
			ON CONFLICT (booking_id) WHERE kind = 'CREDIT' DO NOTHING
			RETURNING driver_id, amount
		)
		UPDATE drivers d
		SET wallet_balance = d.wallet_balance + entry.amount, updated_at = now()
		FROM entry
		WHERE d.id = entry.driver_id`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, tx.ID, tx.DriverID, tx.Amount, tx.BookingID, tx.CreatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return false, types.ErrDriverNotFound
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Debit lowers the balance only if it covers the amount, and logs the DEBIT entry.
func (r *LedgerRepo) Debit(ctx context.Context, tx models.WalletTransaction) (bool, error) {
	const op = "LedgerRepo.Debit"
	query := `
		WITH debited AS (
			UPDATE drivers
			SET wallet_balance = wallet_balance - $3::bigint, updated_at = now()
			WHERE id = $2 AND wallet_balance >= $3::bigint
			RETURNING id
		)
		INSERT INTO wallet_transactions (id, driver_id, kind, amount, withdrawal_id, created_at)
		SELECT $1, debited.id, 'DEBIT', $3::bigint, $4, $5
		FROM debited`

	q := TxorDB(ctx, r.db)
	tag, err := q.Exec(ctx, query, tx.ID, tx.DriverID, tx.Amount, tx.WithdrawalID, tx.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM drivers WHERE id = $1)`, tx.DriverID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: check existence: %w", op, err)
	}
	if !exists {
		return false, types.ErrDriverNotFound
	}
	return false, nil
}

func (r *LedgerRepo) Transactions(ctx context.Context, driverID uuid.UUID) ([]models.WalletTransaction, error) {
	const op = "LedgerRepo.Transactions"
	query := `
		SELECT id, driver_id, kind, amount, booking_id, withdrawal_id, created_at
		FROM wallet_transactions
		WHERE driver_id = $1
		ORDER BY created_at, id`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.WalletTransaction
	for rows.Next() {
		var tx models.WalletTransaction
		if err := rows.Scan(&tx.ID, &tx.DriverID, &tx.Kind, &tx.Amount, &tx.BookingID, &tx.WithdrawalID, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
