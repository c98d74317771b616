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
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{
		db: db,
	}
}

func (r *DriverRepo) Create(ctx context.Context, d *models.Driver) error {
	const op = "DriverRepo.Create"
	query := `
		INSERT INTO drivers (id, name, is_online, is_available, is_on_trip)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		d.ID,
		d.Name,
		d.IsOnline,
		d.IsAvailable,
		d.IsOnTrip,
	).Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *DriverRepo) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	const op = "DriverRepo.Get"
	query := `
		SELECT id, name, is_online, is_available, is_on_trip,
			latitude, longitude, location_updated_at, wallet_balance,
			bank_name, bank_holder_name, bank_account_number, bank_routing_code,
			created_at, updated_at
		FROM drivers
		WHERE id = $1`

	var (
		d        models.Driver
		lat, lng *float64

		bankName, holder, account, routing *string
	)
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.IsOnline, &d.IsAvailable, &d.IsOnTrip,
		&lat, &lng, &d.LocationUpdatedAt, &d.WalletBalance,
		&bankName, &holder, &account, &routing,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDriverNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lat != nil && lng != nil {
		d.Location = &models.Location{Latitude: *lat, Longitude: *lng}
	}
	if account != nil {
		d.Bank = &models.BankDetails{
			BankName:      deref(bankName),
			HolderName:    deref(holder),
			AccountNumber: *account,
			RoutingCode:   deref(routing),
		}
	}

	return &d, nil
}

// Reserve flips an available driver to on-trip. false means the driver was taken.
func (r *DriverRepo) Reserve(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "DriverRepo.Reserve"
	query := `
		UPDATE drivers
		SET is_available = FALSE, is_on_trip = TRUE, updated_at = now()
		WHERE id = $1 AND is_available AND NOT is_on_trip`

	return r.conditional(ctx, op, id, query, id)
}

func (r *DriverRepo) Release(ctx context.Context, id uuid.UUID) error {
	const op = "DriverRepo.Release"
	query := `
		UPDATE drivers
		SET is_available = TRUE, is_on_trip = FALSE, updated_at = now()
		WHERE id = $1`

	return r.exec(ctx, op, query, id)
}

func (r *DriverRepo) UpdateLocation(ctx context.Context, id uuid.UUID, loc models.Location, at time.Time) error {
	const op = "DriverRepo.UpdateLocation"
	query := `
		UPDATE drivers
		SET latitude = $2, longitude = $3, location_updated_at = $4, updated_at = now()
		WHERE id = $1`

	return r.exec(ctx, op, query, id, loc.Latitude, loc.Longitude, at)
}

func (r *DriverRepo) SetOnline(ctx context.Context, id uuid.UUID) error {
	const op = "DriverRepo.SetOnline"
	return r.exec(ctx, op, `UPDATE drivers SET is_online = TRUE, updated_at = now() WHERE id = $1`, id)
}

// SetOffline returns false while the driver is on a trip.
func (r *DriverRepo) SetOffline(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "DriverRepo.SetOffline"
	query := `
		UPDATE drivers
		SET is_online = FALSE, updated_at = now()
		WHERE id = $1 AND NOT is_on_trip`

	return r.conditional(ctx, op, id, query, id)
}

func (r *DriverRepo) SetBankDetails(ctx context.Context, id uuid.UUID, bank models.BankDetails) error {
	const op = "DriverRepo.SetBankDetails"
	query := `
		UPDATE drivers
		SET bank_name = $2, bank_holder_name = $3, bank_account_number = $4, bank_routing_code = $5, updated_at = now()
		WHERE id = $1`

	return r.exec(ctx, op, query, id, bank.BankName, bank.HolderName, bank.AccountNumber, bank.RoutingCode)
}

func (r *DriverRepo) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}
	return nil
}

func (r *DriverRepo) conditional(ctx context.Context, op string, id uuid.UUID, query string, args ...any) (bool, error) {
	q := TxorDB(ctx, r.db)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM drivers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: check existence: %w", op, err)
	}
	if !exists {
		return false, types.ErrDriverNotFound
	}
	return false, nil
}
