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

type BookingRepo struct {
	db *pgxpool.Pool
}

func NewBookingRepo(db *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{db: db}
}

const bookingColumns = `
	id, customer_id, driver_id, status, vehicle_type,
	pickup_lat, pickup_lng, drop_lat, drop_lng, rejected_drivers::text[],
	driver_to_pickup_km, driver_to_pickup_eta_min, pickup_charge, pickup_to_drop_eta_min,
	remaining_km, trip_distance_km, actual_duration_min,
	arrived_at_pickup_at, trip_started_at, trip_ended_at,
	payment_method, payment_status,
	final_fare, commission_amount, driver_earning, fare_finalized_at,
	cancellation_reason, cancelled_at, created_at, updated_at`

// Create inserts a new booking awaiting a driver.
func (r *BookingRepo) Create(ctx context.Context, b *models.Booking) error {
	const op = "BookingRepo.Create"
	query := `
		INSERT INTO bookings (id, customer_id, status, vehicle_type, pickup_lat, pickup_lng, drop_lat, drop_lng, payment_method, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	if err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		b.ID,
		b.CustomerID,
		b.Status,
		b.VehicleType,
		b.Pickup.Latitude,
		b.Pickup.Longitude,
		b.Drop.Latitude,
		b.Drop.Longitude,
		b.PaymentMethod,
		b.PaymentStatus,
	).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	const op = "BookingRepo.Get"
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(TxorDB(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrBookingNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func (r *BookingRepo) Assign(ctx context.Context, id uuid.UUID, trip models.AssignedTrip) (bool, error) {
	const op = "BookingRepo.Assign"
	query := `
		UPDATE bookings
		SET status = 'DRIVER_ASSIGNED',
			driver_id = $2,
			driver_to_pickup_km = $3,
			driver_to_pickup_eta_min = $4,
			pickup_charge = $5,
			updated_at = now()
		WHERE id = $1 AND status = 'AWAITING_DRIVER' AND driver_id IS NULL`

	return r.conditional(ctx, op, id, query,
		id,
		trip.DriverID,
		trip.DriverToPickupKm,
		trip.DriverToPickupEtaMin,
		trip.PickupCharge,
	)
}

// AddRejectedDriver adds the driver to the declined set once. It only applies while the booking awaits a driver.
func (r *BookingRepo) AddRejectedDriver(ctx context.Context, id, driverID uuid.UUID) (bool, error) {
	const op = "BookingRepo.AddRejectedDriver"
	query := `
		UPDATE bookings
		SET rejected_drivers = CASE
				WHEN $2::uuid = ANY(rejected_drivers) THEN rejected_drivers
				ELSE array_append(rejected_drivers, $2::uuid)
			END,
			updated_at = now()
		WHERE id = $1 AND status = 'AWAITING_DRIVER'`

	return r.conditional(ctx, op, id, query, id, driverID)
}

func (r *BookingRepo) Start(ctx context.Context, id uuid.UUID, trip models.StartedTrip) (bool, error) {
	const op = "BookingRepo.Start"
	query := `
		UPDATE bookings
		SET status = 'TRIP_STARTED',
			trip_started_at = $3,
			pickup_to_drop_eta_min = $4,
			remaining_km = $5,
			updated_at = now()
		WHERE id = $1 AND status = 'DRIVER_ASSIGNED' AND driver_id = $2`

	return r.conditional(ctx, op, id, query,
		id,
		trip.DriverID,
		trip.StartedAt,
		trip.PickupToDropEtaMin,
		trip.RemainingKm,
	)
}

// Complete writes the fare once: the row must still be started, owned by the driver and unpriced.
func (r *BookingRepo) Complete(ctx context.Context, id uuid.UUID, trip models.CompletedTrip) (bool, error) {
	const op = "BookingRepo.Complete"
	query := `
		UPDATE bookings
		SET status = 'TRIP_COMPLETED',
			final_fare = $3,
			commission_amount = $4,
			driver_earning = $5,
			fare_finalized_at = $6,
			trip_ended_at = $7,
			trip_distance_km = $8,
			actual_duration_min = $9,
			remaining_km = 0,
			payment_method = $10,
			payment_status = $11,
			updated_at = now()
		WHERE id = $1 AND status = 'TRIP_STARTED' AND driver_id = $2 AND final_fare IS NULL`

	return r.conditional(ctx, op, id, query,
		id,
		trip.DriverID,
		trip.Fare.FinalFare,
		trip.Fare.CommissionAmount,
		trip.Fare.DriverEarning,
		trip.Fare.FinalizedAt,
		trip.EndedAt,
		trip.TripDistanceKm,
		trip.ActualDurationMin,
		trip.PaymentMethod,
		trip.PaymentStatus,
	)
}

func (r *BookingRepo) Cancel(ctx context.Context, id uuid.UUID, from types.BookingStatus, reason string, at time.Time) (bool, error) {
	const op = "BookingRepo.Cancel"
	if from.IsTerminal() {
		return false, nil
	}
	query := `
		UPDATE bookings
		SET status = 'CANCELLED',
			cancellation_reason = $3,
			cancelled_at = $4,
			updated_at = now()
		WHERE id = $1 AND status = $2`

	return r.conditional(ctx, op, id, query, id, from, reason, at)
}

// MarkArrived sets the arrival timestamp once, while the booking is active.
func (r *BookingRepo) MarkArrived(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const op = "BookingRepo.MarkArrived"
	query := `
		UPDATE bookings
		SET arrived_at_pickup_at = $2, updated_at = now()
		WHERE id = $1
			AND arrived_at_pickup_at IS NULL
			AND status IN ('DRIVER_ASSIGNED', 'TRIP_STARTED')`

	return r.conditional(ctx, op, id, query, id, at)
}

func (r *BookingRepo) ActiveForDriver(ctx context.Context, driverID uuid.UUID) ([]*models.Booking, error) {
	const op = "BookingRepo.ActiveForDriver"
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE driver_id = $1 AND status IN ('DRIVER_ASSIGNED', 'TRIP_STARTED')`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// conditional runs a guarded UPDATE. Zero affected rows means the guard failed,
// unless the booking does not exist at all.
func (r *BookingRepo) conditional(ctx context.Context, op string, id uuid.UUID, query string, args ...any) (bool, error) {
	q := TxorDB(ctx, r.db)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: check existence: %w", op, err)
	}
	if !exists {
		return false, types.ErrBookingNotFound
	}
	return false, nil
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var (
		b        models.Booking
		rejected []string

		finalFare, commission, earning *int64
		finalizedAt                    *time.Time
	)

	if err := row.Scan(
		&b.ID, &b.CustomerID, &b.DriverID, &b.Status, &b.VehicleType,
		&b.Pickup.Latitude, &b.Pickup.Longitude, &b.Drop.Latitude, &b.Drop.Longitude, &rejected,
		&b.Metrics.DriverToPickupKm, &b.Metrics.DriverToPickupEtaMin, &b.Metrics.PickupCharge, &b.Metrics.PickupToDropEtaMin,
		&b.Metrics.RemainingKm, &b.Metrics.TripDistanceKm, &b.Metrics.ActualDurationMin,
		&b.Metrics.ArrivedAtPickupAt, &b.Metrics.TripStartedAt, &b.Metrics.TripEndedAt,
		&b.PaymentMethod, &b.PaymentStatus,
		&finalFare, &commission, &earning, &finalizedAt,
		&b.CancellationReason, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.RejectedDrivers = make([]uuid.UUID, 0, len(rejected))
	for _, s := range rejected {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("rejected driver id %q: %w", s, err)
		}
		b.RejectedDrivers = append(b.RejectedDrivers, id)
	}

	if finalFare != nil {
		b.Fare = &models.FareBreakdown{
			FinalFare:        *finalFare,
			CommissionAmount: deref(commission),
			DriverEarning:    deref(earning),
		}
		if finalizedAt != nil {
			b.Fare.FinalizedAt = *finalizedAt
		}
	}

	return &b, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
