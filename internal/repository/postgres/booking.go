package postgres

import (
	"context"
	"database/sql"

	"ridebot/internal/domain"
)

// BookingStore is a PostgreSQL implementation of repository.BookingStore.
type BookingStore struct {
	db *sql.DB
}

// NewBookingStore creates a new PostgreSQL booking store.
func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{db: db}
}

// ConfirmBooking creates the trip and deletes the passenger's session
// in one transaction.
func (s *BookingStore) ConfirmBooking(ctx context.Context, trip *domain.Trip) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = NewTripRepositoryWithTx(tx).Create(ctx, trip); err != nil {
		return err
	}
	if err = NewSessionRepositoryWithTx(tx).Delete(ctx, trip.PassengerChatID); err != nil {
		return err
	}

	return tx.Commit()
}
