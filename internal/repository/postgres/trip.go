package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ridebot/internal/domain"
	"ridebot/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `
	id, short_code, status,
	passenger_chat_id, passenger_phone,
	pickup_label, pickup_lat, pickup_lng,
	dropoff_label, dropoff_lat, dropoff_lng,
	distance_miles, duration_minutes, fare,
	scheduled_at,
	driver_chat_id, driver_name, driver_car,
	version, created_at, updated_at
`

// Create persists a new trip at version 1.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	trip.Version = 1

	var scheduledAt sql.NullTime
	if !trip.ScheduledAt.IsZero() {
		scheduledAt = sql.NullTime{Time: trip.ScheduledAt, Valid: true}
	}

	var driverChatID sql.NullInt64
	if trip.DriverChatID != 0 {
		driverChatID = sql.NullInt64{Int64: trip.DriverChatID, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.ShortCode,
		trip.Status,
		trip.PassengerChatID,
		trip.PassengerPhone,
		trip.PickupLabel,
		trip.PickupLat,
		trip.PickupLng,
		trip.DropoffLabel,
		trip.DropoffLat,
		trip.DropoffLng,
		trip.DistanceMiles,
		trip.DurationMinutes,
		trip.Fare,
		scheduledAt,
		driverChatID,
		trip.DriverName,
		trip.DriverCar,
		trip.Version,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trip by its identifier.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// GetByShortCode retrieves a trip by its user-facing short code.
func (r *TripRepository) GetByShortCode(ctx context.Context, code string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE short_code = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, code))
}

// UpdateIfVersion commits the trip only if the stored version still
// equals expectedVersion. The version check and the increment happen in
// one statement, which is what makes concurrent transitions race-free:
// the database guarantees at most one writer sees rowsAffected == 1.
func (r *TripRepository) UpdateIfVersion(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	query := `
		UPDATE trips
		SET status = $1,
		    passenger_phone = $2,
		    scheduled_at = $3,
		    driver_chat_id = $4,
		    driver_name = $5,
		    driver_car = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE id = $8 AND version = $9
	`

	var scheduledAt sql.NullTime
	if !trip.ScheduledAt.IsZero() {
		scheduledAt = sql.NullTime{Time: trip.ScheduledAt, Valid: true}
	}

	var driverChatID sql.NullInt64
	if trip.DriverChatID != 0 {
		driverChatID = sql.NullInt64{Int64: trip.DriverChatID, Valid: true}
	}

	now := time.Now()

	result, err := r.q.ExecContext(ctx, query,
		trip.Status,
		trip.PassengerPhone,
		scheduledAt,
		driverChatID,
		trip.DriverName,
		trip.DriverCar,
		now,
		trip.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Either the trip is gone or another transition committed first.
		if _, getErr := r.GetByID(ctx, trip.ID); errors.Is(getErr, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	trip.Version = expectedVersion + 1
	trip.UpdatedAt = now
	return nil
}

// ListRecentByChat retrieves a passenger's most recent trips, newest first.
func (r *TripRepository) ListRecentByChat(ctx context.Context, chatID int64, limit int) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE passenger_chat_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TripRepository) scanOne(row *sql.Row) (*domain.Trip, error) {
	trip, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var scheduledAt sql.NullTime
	var driverChatID sql.NullInt64

	err := row.Scan(
		&trip.ID,
		&trip.ShortCode,
		&trip.Status,
		&trip.PassengerChatID,
		&trip.PassengerPhone,
		&trip.PickupLabel,
		&trip.PickupLat,
		&trip.PickupLng,
		&trip.DropoffLabel,
		&trip.DropoffLat,
		&trip.DropoffLng,
		&trip.DistanceMiles,
		&trip.DurationMinutes,
		&trip.Fare,
		&scheduledAt,
		&driverChatID,
		&trip.DriverName,
		&trip.DriverCar,
		&trip.Version,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if scheduledAt.Valid {
		trip.ScheduledAt = scheduledAt.Time
	}
	if driverChatID.Valid {
		trip.DriverChatID = driverChatID.Int64
	}

	return &trip, nil
}
