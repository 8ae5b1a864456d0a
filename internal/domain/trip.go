package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusRequested     TripStatus = "REQUESTED"
	TripStatusDriverPending TripStatus = "DRIVER_PENDING"
	TripStatusOnTheWay      TripStatus = "ON_THE_WAY"
	TripStatusStarted       TripStatus = "STARTED"
	TripStatusFinished      TripStatus = "FINISHED"
	TripStatusCanceled      TripStatus = "CANCELED"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusFinished || s == TripStatusCanceled
}

// CanTransitionTo reports whether the lifecycle graph allows moving from s to next.
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	switch s {
	case TripStatusRequested:
		return next == TripStatusDriverPending || next == TripStatusCanceled
	case TripStatusDriverPending:
		return next == TripStatusOnTheWay || next == TripStatusCanceled
	case TripStatusOnTheWay:
		return next == TripStatusStarted || next == TripStatusCanceled
	case TripStatusStarted:
		return next == TripStatusFinished
	default:
		return false
	}
}

// Trip represents a confirmed booking.
//
// Version is a monotonically increasing counter used for optimistic
// concurrency: every status transition commits through a conditional
// write keyed on the version the writer read.
type Trip struct {
	ID        string
	ShortCode string // user-facing identifier, also carried in callback data
	Status    TripStatus

	PassengerChatID int64
	PassengerPhone  string

	PickupLabel  string
	PickupLat    float64
	PickupLng    float64
	DropoffLabel string
	DropoffLat   float64
	DropoffLng   float64

	DistanceMiles   float64
	DurationMinutes float64
	Fare            float64

	ScheduledAt time.Time // zero means "as soon as possible"

	DriverChatID int64 // zero until a driver wins the assignment race
	DriverName   string
	DriverCar    string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assigned reports whether a driver has won the assignment for this trip.
func (t *Trip) Assigned() bool {
	return t.DriverChatID != 0
}
