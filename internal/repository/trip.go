package repository

import (
	"context"

	"ridebot/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip at version 1.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetByShortCode retrieves a trip by its user-facing short code,
	// the key carried in driver callback data.
	GetByShortCode(ctx context.Context, code string) (*domain.Trip, error)

	// UpdateIfVersion commits trip only if the stored version still
	// equals expectedVersion, then increments the version. Returns
	// ErrVersionConflict when a concurrent transition won.
	UpdateIfVersion(ctx context.Context, trip *domain.Trip, expectedVersion int64) error

	// ListRecentByChat retrieves a passenger's most recent trips,
	// newest first.
	ListRecentByChat(ctx context.Context, chatID int64, limit int) ([]*domain.Trip, error)
}

// SessionRepository defines the persistence operations for dialog sessions.
// At most one session exists per chat; Put upserts.
type SessionRepository interface {
	Get(ctx context.Context, chatID int64) (*domain.Session, error)
	Put(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, chatID int64) error
}

// BookingStore commits the confirmation hand-off: the trip insert and
// the session discard succeed or fail as one unit, so a confirm that
// fails partway leaves nothing behind and is safe to redeliver.
type BookingStore interface {
	ConfirmBooking(ctx context.Context, trip *domain.Trip) error
}
