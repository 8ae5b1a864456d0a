package tests

import (
	"context"
	"errors"
	"testing"

	"ridebot/internal/domain"
)

func acceptUpdate(eventID string, driverChatID int64, shortCode string) domain.Update {
	return domain.Update{
		Kind:         domain.UpdateKindCallback,
		EventID:      eventID,
		ChatID:       driverChatID,
		MessageID:    1,
		CallbackData: "accept:" + shortCode,
	}
}

func TestOrchestrator_RedeliveredEventProcessedOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	trip := pendingTrip(f)

	update := acceptUpdate("evt-1", testDrivers[0].ChatID, trip.ShortCode)

	if err := f.orchestrator.HandleUpdate(ctx, update); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	afterFirst := f.trips.Trip(trip.ID)
	if afterFirst.Status != domain.TripStatusOnTheWay {
		t.Fatalf("status = %s, want ON_THE_WAY", afterFirst.Status)
	}

	// At-least-once transport redelivers the same event.
	if err := f.orchestrator.HandleUpdate(ctx, update); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	afterSecond := f.trips.Trip(trip.ID)
	if afterSecond.Version != afterFirst.Version {
		t.Fatalf("version moved %d -> %d on a duplicate event",
			afterFirst.Version, afterSecond.Version)
	}
	if got := f.dedup.SeenCallCount; got != 2 {
		t.Fatalf("dedup checked %d times, want 2", got)
	}
	if got := f.dedup.RecordCallCount; got != 1 {
		t.Fatalf("event recorded %d times, want once", got)
	}
}

func TestOrchestrator_FailedEventStaysRetryable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	trip := pendingTrip(f)

	update := acceptUpdate("evt-2", testDrivers[0].ChatID, trip.ShortCode)

	// First attempt fails inside the store.
	storeDown := errors.New("connection refused")
	f.trips.GetError = storeDown
	if err := f.orchestrator.HandleUpdate(ctx, update); err == nil {
		t.Fatal("expected the store failure to surface")
	}
	if got := f.dedup.RecordCallCount; got != 0 {
		t.Fatalf("failed event was recorded (%d records); it must stay retryable", got)
	}

	// The redelivery after recovery succeeds.
	f.trips.GetError = nil
	if err := f.orchestrator.HandleUpdate(ctx, update); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if got := f.trips.Trip(trip.ID).Status; got != domain.TripStatusOnTheWay {
		t.Fatalf("status = %s, want ON_THE_WAY after the retry", got)
	}
}

func TestOrchestrator_FailedConfirmRedeliveryCreatesOneTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	chatID := int64(500)

	f.sessions.AddSession(&domain.Session{
		ChatID:          chatID,
		State:           domain.SessionStateAwaitingConfirmation,
		PickupLabel:     "100 Main St, Springfield, IL",
		DropoffLabel:    "200 Oak Ave, Springfield, IL",
		DistanceMiles:   10,
		DurationMinutes: 20,
		Fare:            37.00,
		Phone:           "+18505551234",
	})

	update := domain.Update{
		Kind:         domain.UpdateKindCallback,
		EventID:      "evt-confirm",
		ChatID:       chatID,
		MessageID:    20,
		CallbackData: "confirm",
	}

	// The first delivery dies inside the booking commit: the trip
	// insert and session delete roll back together, so nothing lands.
	storeDown := errors.New("connection refused")
	f.booking.ConfirmError = storeDown
	if err := f.orchestrator.HandleUpdate(ctx, update); err == nil {
		t.Fatal("expected the commit failure to surface")
	}
	if got := f.trips.CreateCallCount; got != 0 {
		t.Fatalf("failed commit left %d trips behind", got)
	}
	if f.sessions.Session(chatID) == nil {
		t.Fatal("failed commit discarded the session")
	}
	if got := f.dedup.RecordCallCount; got != 0 {
		t.Fatalf("failed event was recorded (%d records); it must stay retryable", got)
	}

	// The transport redelivers the same event after recovery.
	f.booking.ConfirmError = nil
	if err := f.orchestrator.HandleUpdate(ctx, update); err != nil {
		t.Fatalf("redelivery after recovery: %v", err)
	}
	if got := f.trips.CreateCallCount; got != 1 {
		t.Fatalf("created %d trips, want exactly 1", got)
	}
	if f.sessions.Session(chatID) != nil {
		t.Fatal("session should be discarded with the commit")
	}

	// A third delivery is dropped by the dedup gate.
	if err := f.orchestrator.HandleUpdate(ctx, update); err != nil {
		t.Fatalf("duplicate after success: %v", err)
	}
	if got := f.trips.CreateCallCount; got != 1 {
		t.Fatalf("duplicate event created a second trip (%d creates)", got)
	}
}

func TestOrchestrator_MessageEventsRouteToConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()

	update := domain.Update{
		Kind:    domain.UpdateKindMessage,
		EventID: "evt-3",
		ChatID:  300,
		Text:    "/newride",
	}
	if err := f.orchestrator.HandleUpdate(ctx, update); err != nil {
		t.Fatalf("message event: %v", err)
	}
	if got := f.sessions.Session(300).State; got != domain.SessionStateAwaitingPickup {
		t.Fatalf("state = %s, want AWAITING_PICKUP", got)
	}
	if got := f.dedup.RecordCallCount; got != 1 {
		t.Fatalf("event recorded %d times, want once", got)
	}
}

func TestOrchestrator_EndToEndBookingAndAssignment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newDispatchingFixture()
	chatID := int64(400)

	steps := []domain.Update{
		{Kind: domain.UpdateKindMessage, EventID: "e2e-1", ChatID: chatID, Text: "/newride"},
		{Kind: domain.UpdateKindMessage, EventID: "e2e-2", ChatID: chatID, Text: "100 Main St"},
		{Kind: domain.UpdateKindMessage, EventID: "e2e-3", ChatID: chatID, Text: "200 Oak Ave"},
		{Kind: domain.UpdateKindCallback, EventID: "e2e-4", ChatID: chatID, MessageID: 10, CallbackData: "now"},
		{Kind: domain.UpdateKindMessage, EventID: "e2e-5", ChatID: chatID, Text: "+1 850 555 1234"},
		{Kind: domain.UpdateKindCallback, EventID: "e2e-6", ChatID: chatID, MessageID: 11, CallbackData: "confirm"},
	}
	for _, u := range steps {
		if err := f.orchestrator.HandleUpdate(ctx, u); err != nil {
			t.Fatalf("step %s: %v", u.EventID, err)
		}
	}

	// The confirmed trip fanned out; grab its short code from an offer.
	offers := f.notifier.SentTo(testDrivers[0].ChatID)
	if len(offers) != 1 {
		t.Fatalf("driver got %d offers, want 1", len(offers))
	}

	trip, err := f.trips.ListRecentByChat(ctx, chatID, 1)
	if err != nil || len(trip) != 1 {
		t.Fatalf("trip lookup: %v (%d trips)", err, len(trip))
	}
	code := trip[0].ShortCode

	// A driver accepts through the orchestrator.
	if err := f.orchestrator.HandleUpdate(ctx, acceptUpdate("e2e-7", testDrivers[1].ChatID, code)); err != nil {
		t.Fatalf("accept: %v", err)
	}

	stored := f.trips.Trip(trip[0].ID)
	if stored.Status != domain.TripStatusOnTheWay {
		t.Fatalf("status = %s, want ON_THE_WAY", stored.Status)
	}
	if stored.DriverName != testDrivers[1].Name {
		t.Fatalf("driver = %q, want %q", stored.DriverName, testDrivers[1].Name)
	}
}
