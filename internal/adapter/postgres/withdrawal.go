package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type WithdrawalRepo struct {
	db *pgxpool.Pool
}

func NewWithdrawalRepo(db *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{db: db}
}

const withdrawalColumns = `id, driver_id, amount, status, note, created_at, resolved_at, resolved_by`

func (r *WithdrawalRepo) Create(ctx context.Context, w *models.Withdrawal) error {
	const op = "WithdrawalRepo.Create"
	query := `
		INSERT INTO withdrawals (id, driver_id, amount, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, w.ID, w.DriverID, w.Amount, w.Status, w.Note, w.CreatedAt); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return types.ErrDriverNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *WithdrawalRepo) Get(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	const op = "WithdrawalRepo.Get"
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	w, err := scanWithdrawal(TxorDB(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

// Resolve moves a PENDING withdrawal to status. ok is false when it was already resolved.
func (r *WithdrawalRepo) Resolve(ctx context.Context, id uuid.UUID, status types.WithdrawalStatus, by uuid.UUID, note string, at time.Time) (*models.Withdrawal, bool, error) {
	const op = "WithdrawalRepo.Resolve"
	query := `
		UPDATE withdrawals
		SET status = $2, resolved_by = $3, note = $4, resolved_at = $5
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + withdrawalColumns

	w, err := scanWithdrawal(TxorDB(ctx, r.db).QueryRow(ctx, query, id, status, by, note, at))
	if err == nil {
		return w, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	// Nothing updated: either unknown or no longer pending.
	if _, err := r.Get(ctx, id); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// List returns withdrawals with the given status, oldest first. An empty status lists all.
func (r *WithdrawalRepo) List(ctx context.Context, status types.WithdrawalStatus) ([]*models.Withdrawal, error) {
	const op = "WithdrawalRepo.List"
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE $1::text = '' OR status = $1::text
		ORDER BY created_at, id`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]*models.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := row.Scan(&w.ID, &w.DriverID, &w.Amount, &w.Status, &w.Note, &w.CreatedAt, &w.ResolvedAt, &w.ResolvedBy); err != nil {
		return nil, err
	}
	return &w, nil
}
