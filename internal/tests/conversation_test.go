package tests

import (
	"context"
	"strings"
	"testing"

	"ridebot/internal/domain"
	"ridebot/internal/route"
	"ridebot/internal/telegram"
)

func TestConversation_HappyPathThroughConfirmation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	chatID := int64(100)

	// Start a new ride.
	if err := f.conv.HandleText(ctx, chatID, "/newride"); err != nil {
		t.Fatalf("newride: %v", err)
	}
	if got := f.sessions.Session(chatID).State; got != domain.SessionStateAwaitingPickup {
		t.Fatalf("state = %s, want AWAITING_PICKUP", got)
	}

	// Pickup address.
	if err := f.conv.HandleText(ctx, chatID, "100 Main St, Springfield"); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if got := f.sessions.Session(chatID).State; got != domain.SessionStateAwaitingDropoff {
		t.Fatalf("state = %s, want AWAITING_DROPOFF", got)
	}

	// Drop-off address resolves a route and moves to schedule choice.
	if err := f.conv.HandleText(ctx, chatID, "200 Oak Ave, Springfield"); err != nil {
		t.Fatalf("dropoff: %v", err)
	}
	session := f.sessions.Session(chatID)
	if session.State != domain.SessionStateAwaitingScheduleChoice {
		t.Fatalf("state = %s, want AWAITING_SCHEDULE_CHOICE", session.State)
	}
	if session.DistanceMiles != 10.0 || session.DurationMinutes != 20.0 {
		t.Fatalf("route leg not stored on session: %+v", session)
	}
	if session.Fare != 0 {
		t.Fatalf("fare computed too early: %v", session.Fare)
	}

	// Ride now.
	if err := f.conv.HandleCallback(ctx, chatID, 1, telegram.CallbackRideNow); err != nil {
		t.Fatalf("ride now: %v", err)
	}
	if got := f.sessions.Session(chatID).State; got != domain.SessionStateAwaitingPhone {
		t.Fatalf("state = %s, want AWAITING_PHONE", got)
	}

	// Phone.
	if err := f.conv.HandleText(ctx, chatID, "850 555 1234"); err != nil {
		t.Fatalf("phone: %v", err)
	}
	session = f.sessions.Session(chatID)
	if session.State != domain.SessionStateAwaitingConfirmation {
		t.Fatalf("state = %s, want AWAITING_CONFIRMATION", session.State)
	}
	if session.Phone != "+18505551234" {
		t.Fatalf("phone = %q, want +18505551234", session.Phone)
	}

	// Fare frozen on entering confirmation: 3 + 2.5*10 + 0.4*20 + 1 = 37.
	if session.Fare != 37.00 {
		t.Fatalf("fare = %v, want 37.00", session.Fare)
	}

	// Confirm.
	if err := f.conv.HandleCallback(ctx, chatID, 2, telegram.CallbackConfirm); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if f.sessions.Session(chatID) != nil {
		t.Fatal("session should be deleted after confirmation")
	}
	dispatched := f.dispatcher.Dispatched()
	if len(dispatched) != 1 {
		t.Fatalf("dispatched %d trips, want 1", len(dispatched))
	}
	trip := f.trips.Trip(dispatched[0])
	if trip == nil {
		t.Fatal("confirmed trip not persisted")
	}
	if trip.Status != domain.TripStatusRequested {
		t.Fatalf("trip status = %s, want REQUESTED", trip.Status)
	}
	if trip.Fare != 37.00 {
		t.Fatalf("trip fare = %v, want the frozen 37.00", trip.Fare)
	}
	if trip.Version != 1 {
		t.Fatalf("trip version = %d, want 1", trip.Version)
	}
	if len(trip.ShortCode) != 6 {
		t.Fatalf("short code %q, want 6 characters", trip.ShortCode)
	}
}

func TestConversation_InvalidPhoneLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	chatID := int64(101)

	f.sessions.AddSession(&domain.Session{
		ChatID:          chatID,
		State:           domain.SessionStateAwaitingPhone,
		PickupLabel:     "A",
		DropoffLabel:    "B",
		DistanceMiles:   2,
		DurationMinutes: 5,
	})

	if err := f.conv.HandleText(ctx, chatID, "not a phone"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session := f.sessions.Session(chatID)
	if session.State != domain.SessionStateAwaitingPhone {
		t.Fatalf("state = %s, want AWAITING_PHONE unchanged", session.State)
	}
	if session.Phone != "" {
		t.Fatalf("phone = %q, want empty after invalid input", session.Phone)
	}

	sent := f.notifier.SentTo(chatID)
	if len(sent) == 0 || !strings.Contains(sent[len(sent)-1].Text, "invalid") {
		t.Fatalf("expected a re-prompt, got %+v", sent)
	}
}

func TestConversation_RouteFailureKeepsAwaitingDropoff(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	f.routes.Err = route.ErrAddressNotFound
	chatID := int64(102)

	f.sessions.AddSession(&domain.Session{
		ChatID:     chatID,
		State:      domain.SessionStateAwaitingDropoff,
		PickupText: "100 Main St",
	})

	if err := f.conv.HandleText(ctx, chatID, "nowhere at all"); err != nil {
		t.Fatalf("route failure must not surface an error: %v", err)
	}

	session := f.sessions.Session(chatID)
	if session.State != domain.SessionStateAwaitingDropoff {
		t.Fatalf("state = %s, want AWAITING_DROPOFF so the passenger can retry", session.State)
	}
	if session.DropoffText != "" {
		t.Fatalf("drop-off %q stored despite failed lookup", session.DropoffText)
	}

	// Retry with a working provider succeeds.
	f.routes.Err = nil
	if err := f.conv.HandleText(ctx, chatID, "200 Oak Ave"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := f.sessions.Session(chatID).State; got != domain.SessionStateAwaitingScheduleChoice {
		t.Fatalf("state = %s, want AWAITING_SCHEDULE_CHOICE after retry", got)
	}
}

func TestConversation_ConfirmWithoutPhoneFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	chatID := int64(103)

	f.sessions.AddSession(&domain.Session{
		ChatID:       chatID,
		State:        domain.SessionStateAwaitingConfirmation,
		PickupLabel:  "A",
		DropoffLabel: "B",
	})

	err := f.conv.HandleCallback(ctx, chatID, 1, telegram.CallbackConfirm)
	if err == nil {
		t.Fatal("expected an error confirming a session without a phone")
	}
	if got := f.trips.CreateCallCount; got != 0 {
		t.Fatalf("trip created despite incomplete session (%d creates)", got)
	}
}

func TestConversation_StaleButtonIsIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	chatID := int64(104)

	f.sessions.AddSession(&domain.Session{
		ChatID: chatID,
		State:  domain.SessionStateAwaitingPickup,
	})

	// A confirm press while still collecting the pickup is stale.
	if err := f.conv.HandleCallback(ctx, chatID, 7, telegram.CallbackConfirm); err != nil {
		t.Fatalf("stale button must be a no-op: %v", err)
	}
	if got := f.sessions.Session(chatID).State; got != domain.SessionStateAwaitingPickup {
		t.Fatalf("state = %s, want AWAITING_PICKUP unchanged", got)
	}
}

func TestConversation_SavedPhoneReused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	chatID := int64(105)
	f.profiles.SetPhone(ctx, chatID, "+18505559999")

	f.sessions.AddSession(&domain.Session{
		ChatID:          chatID,
		State:           domain.SessionStateAwaitingPhone,
		PickupLabel:     "A",
		DropoffLabel:    "B",
		DistanceMiles:   1,
		DurationMinutes: 3,
	})

	if err := f.conv.HandleCallback(ctx, chatID, 1, telegram.CallbackUsePhone); err != nil {
		t.Fatalf("use saved phone: %v", err)
	}

	session := f.sessions.Session(chatID)
	if session.Phone != "+18505559999" {
		t.Fatalf("phone = %q, want the saved one", session.Phone)
	}
	if session.State != domain.SessionStateAwaitingConfirmation {
		t.Fatalf("state = %s, want AWAITING_CONFIRMATION", session.State)
	}
	// Short trip lands on the minimum fare.
	if session.Fare != 10.00 {
		t.Fatalf("fare = %v, want the 10.00 floor", session.Fare)
	}
}

func TestConversation_AbortDeletesSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	chatID := int64(106)

	f.sessions.AddSession(&domain.Session{
		ChatID: chatID,
		State:  domain.SessionStateAwaitingConfirmation,
	})

	if err := f.conv.HandleCallback(ctx, chatID, 1, telegram.CallbackAbort); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if f.sessions.Session(chatID) != nil {
		t.Fatal("session should be deleted on abort")
	}
	if got := f.trips.CreateCallCount; got != 0 {
		t.Fatalf("abort must not create a trip (%d creates)", got)
	}
}
