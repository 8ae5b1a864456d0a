package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridebot/internal/domain"
	"ridebot/internal/repository"
)

// SessionRepository is a PostgreSQL implementation of repository.SessionRepository.
type SessionRepository struct {
	q Querier
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{q: db}
}

// NewSessionRepositoryWithTx creates a session repository using a transaction.
func NewSessionRepositoryWithTx(tx *sql.Tx) *SessionRepository {
	return &SessionRepository{q: tx}
}

// Get retrieves the session for a chat.
func (r *SessionRepository) Get(ctx context.Context, chatID int64) (*domain.Session, error) {
	query := `
		SELECT chat_id, state,
		       pickup_text, dropoff_text,
		       pickup_label, pickup_lat, pickup_lng,
		       dropoff_label, dropoff_lat, dropoff_lng,
		       distance_miles, duration_minutes, fare,
		       schedule_date, scheduled_at, phone, updated_at
		FROM sessions WHERE chat_id = $1
	`

	var s domain.Session
	var scheduledAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, chatID).Scan(
		&s.ChatID,
		&s.State,
		&s.PickupText,
		&s.DropoffText,
		&s.PickupLabel,
		&s.PickupLat,
		&s.PickupLng,
		&s.DropoffLabel,
		&s.DropoffLat,
		&s.DropoffLng,
		&s.DistanceMiles,
		&s.DurationMinutes,
		&s.Fare,
		&s.ScheduleDate,
		&scheduledAt,
		&s.Phone,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if scheduledAt.Valid {
		s.ScheduledAt = scheduledAt.Time
	}

	return &s, nil
}

// Put upserts the session for its chat. One row per chat keeps the
// "at most one active session" invariant in the schema itself.
func (r *SessionRepository) Put(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (
			chat_id, state,
			pickup_text, dropoff_text,
			pickup_label, pickup_lat, pickup_lng,
			dropoff_label, dropoff_lat, dropoff_lng,
			distance_miles, duration_minutes, fare,
			schedule_date, scheduled_at, phone, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (chat_id) DO UPDATE SET
			state = EXCLUDED.state,
			pickup_text = EXCLUDED.pickup_text,
			dropoff_text = EXCLUDED.dropoff_text,
			pickup_label = EXCLUDED.pickup_label,
			pickup_lat = EXCLUDED.pickup_lat,
			pickup_lng = EXCLUDED.pickup_lng,
			dropoff_label = EXCLUDED.dropoff_label,
			dropoff_lat = EXCLUDED.dropoff_lat,
			dropoff_lng = EXCLUDED.dropoff_lng,
			distance_miles = EXCLUDED.distance_miles,
			duration_minutes = EXCLUDED.duration_minutes,
			fare = EXCLUDED.fare,
			schedule_date = EXCLUDED.schedule_date,
			scheduled_at = EXCLUDED.scheduled_at,
			phone = EXCLUDED.phone,
			updated_at = EXCLUDED.updated_at
	`

	var scheduledAt sql.NullTime
	if !session.ScheduledAt.IsZero() {
		scheduledAt = sql.NullTime{Time: session.ScheduledAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		session.ChatID,
		session.State,
		session.PickupText,
		session.DropoffText,
		session.PickupLabel,
		session.PickupLat,
		session.PickupLng,
		session.DropoffLabel,
		session.DropoffLat,
		session.DropoffLng,
		session.DistanceMiles,
		session.DurationMinutes,
		session.Fare,
		session.ScheduleDate,
		scheduledAt,
		session.Phone,
		session.UpdatedAt,
	)

	return err
}

// Delete removes the session for a chat. Deleting a missing session is
// not an error.
func (r *SessionRepository) Delete(ctx context.Context, chatID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = $1`, chatID)
	return err
}
