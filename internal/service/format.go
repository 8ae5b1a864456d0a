package service

import (
	"fmt"
	"strings"
	"time"

	"ridebot/internal/domain"
	"ridebot/internal/telegram"
)

// formatWhen renders the requested pickup time for chat display.
func formatWhen(scheduledAt time.Time, loc *time.Location) string {
	if scheduledAt.IsZero() {
		return "as soon as possible"
	}
	local := scheduledAt.In(loc)
	return local.Format("Mon, Jan 02") + " at " + telegram.FormatClock(local)
}

// formatRouteSummary renders the route result shown after both
// addresses resolve.
func formatRouteSummary(s *domain.Session) string {
	return fmt.Sprintf(
		"✅ Ride summary:\n• Pickup: %s\n• Drop-off: %s\n\nDistance: %.1f miles\nETA: %d min\n\nWhen do you need the car?",
		s.PickupLabel, s.DropoffLabel, s.DistanceMiles, int(s.DurationMinutes),
	)
}

// formatConfirmation renders the final review message with the frozen fare.
func formatConfirmation(s *domain.Session, loc *time.Location) string {
	return fmt.Sprintf(
		"Please review your ride:\n• Pickup: %s\n• Drop-off: %s\n• When: %s\n• Phone: %s\n\nDistance: %.1f miles\nETA: %d min\nPrice: $%.2f",
		s.PickupLabel, s.DropoffLabel, formatWhen(s.ScheduledAt, loc), s.Phone,
		s.DistanceMiles, int(s.DurationMinutes), s.Fare,
	)
}

// formatDriverOffer renders the fan-out prompt sent to every candidate.
func formatDriverOffer(trip *domain.Trip, loc *time.Location) string {
	return fmt.Sprintf(
		"🚖 New ride request #%s\nClient phone: %s\nWhen: %s\n%s → %s\n%.1f mi • %d min • $%.2f",
		trip.ShortCode, trip.PassengerPhone, formatWhen(trip.ScheduledAt, loc),
		trip.PickupLabel, trip.DropoffLabel,
		trip.DistanceMiles, int(trip.DurationMinutes), trip.Fare,
	)
}

// formatTripList renders a passenger's recent trips.
func formatTripList(trips []*domain.Trip, loc *time.Location) string {
	if len(trips) == 0 {
		return "You have no trips yet."
	}

	lines := make([]string, 0, len(trips))
	for _, t := range trips {
		line := fmt.Sprintf("#%s: %s → %s\n  %.1f mi • %d min • $%.2f • %s • %s",
			t.ShortCode, t.PickupLabel, t.DropoffLabel,
			t.DistanceMiles, int(t.DurationMinutes), t.Fare,
			strings.ToLower(string(t.Status)), formatWhen(t.ScheduledAt, loc))
		if t.Assigned() {
			line += fmt.Sprintf(" • %s (%s)", t.DriverName, t.DriverCar)
		}
		lines = append(lines, line)
	}
	return "Your recent trips:\n\n" + strings.Join(lines, "\n\n")
}
