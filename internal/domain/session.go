package domain

import "time"

// SessionState represents the current step of the booking dialog.
type SessionState string

const (
	SessionStateIdle                   SessionState = "IDLE"
	SessionStateAwaitingPickup         SessionState = "AWAITING_PICKUP"
	SessionStateAwaitingDropoff        SessionState = "AWAITING_DROPOFF"
	SessionStateRouteComputed          SessionState = "ROUTE_COMPUTED"
	SessionStateAwaitingScheduleChoice SessionState = "AWAITING_SCHEDULE_CHOICE"
	SessionStateAwaitingScheduleDate   SessionState = "AWAITING_SCHEDULE_DATE"
	SessionStateAwaitingScheduleTime   SessionState = "AWAITING_SCHEDULE_TIME"
	SessionStateAwaitingPhone          SessionState = "AWAITING_PHONE"
	SessionStateAwaitingConfirmation   SessionState = "AWAITING_CONFIRMATION"
)

// Session holds the booking dialog state for one chat.
// Fields are filled in monotonically as the dialog advances; invalid
// input re-prompts without touching anything already collected.
type Session struct {
	ChatID int64
	State  SessionState

	PickupText  string
	DropoffText string

	PickupLabel  string
	PickupLat    float64
	PickupLng    float64
	DropoffLabel string
	DropoffLat   float64
	DropoffLng   float64

	DistanceMiles   float64
	DurationMinutes float64
	Fare            float64

	ScheduleDate string    // YYYY-MM-DD, set while picking a time slot
	ScheduledAt  time.Time // zero means "as soon as possible"

	Phone string

	UpdatedAt time.Time
}

// ExpiredAfter reports whether the session has been idle longer than window.
func (s *Session) ExpiredAfter(window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > window
}
