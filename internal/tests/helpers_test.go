package tests

import (
	"io"
	"log/slog"
	"time"

	"ridebot/internal/config"
	"ridebot/internal/domain"
	"ridebot/internal/fare"
	"ridebot/internal/route"
	"ridebot/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var testFareConfig = config.FareConfig{
	Base:        3.00,
	PerMile:     2.50,
	PerMinute:   0.40,
	FixedFee:    1.00,
	MinimumFare: 10.00,
}

var testDrivers = []domain.Driver{
	{ChatID: 9001, Name: "Alice", Car: "Toyota Camry"},
	{ChatID: 9002, Name: "Bob", Car: "Honda Accord"},
	{ChatID: 9003, Name: "Carol", Car: "Ford Fusion"},
}

// fixture bundles one fully wired service graph over mocks.
type fixture struct {
	trips      *MockTripRepository
	sessions   *MockSessionRepository
	booking    *MockBookingStore
	dedup      *MockDedupStore
	profiles   *MockProfileStore
	prompts    *MockPromptStore
	notifier   *MockNotifier
	routes     *MockRouteProvider
	dispatcher *MockDispatcher

	conv         *service.ConversationService
	assignment   *service.AssignmentService
	lifecycle    *service.LifecycleService
	orchestrator *service.Orchestrator
}

// newFixture wires the services the way main does, but over mocks. The
// conversation dispatcher defaults to the recording MockDispatcher so
// confirmation tests can assert the hand-off without a fan-out; tests
// that need the real fan-out use newDispatchingFixture.
func newFixture() *fixture {
	f := &fixture{
		trips:      NewMockTripRepository(),
		sessions:   NewMockSessionRepository(),
		dedup:      NewMockDedupStore(),
		profiles:   NewMockProfileStore(),
		prompts:    NewMockPromptStore(),
		notifier:   NewMockNotifier(),
		dispatcher: NewMockDispatcher(),
	}
	f.routes = NewMockRouteProvider(defaultLeg())
	f.booking = NewMockBookingStore(f.trips, f.sessions)

	f.lifecycle = service.NewLifecycleService(f.trips, f.prompts, f.notifier, testLogger, time.UTC)
	f.assignment = service.NewAssignmentService(
		f.trips, f.prompts, f.notifier, testDrivers, f.lifecycle, testLogger, time.UTC)
	f.conv = service.NewConversationService(
		f.sessions, f.trips, f.booking, f.routes, fare.NewCalculator(testFareConfig), f.profiles,
		f.notifier, f.dispatcher, testLogger, time.UTC, 30*time.Minute, 5)
	f.orchestrator = service.NewOrchestrator(f.dedup, f.conv, f.assignment, f.lifecycle, testLogger)
	return f
}

// newDispatchingFixture wires the conversation service directly to the
// assignment service, so a confirmed trip really fans out.
func newDispatchingFixture() *fixture {
	f := newFixture()
	f.conv = service.NewConversationService(
		f.sessions, f.trips, f.booking, f.routes, fare.NewCalculator(testFareConfig), f.profiles,
		f.notifier, f.assignment, testLogger, time.UTC, 30*time.Minute, 5)
	f.orchestrator = service.NewOrchestrator(f.dedup, f.conv, f.assignment, f.lifecycle, testLogger)
	return f
}

func defaultLeg() *route.Leg {
	return &route.Leg{
		PickupLabel:     "100 Main St, Springfield, IL",
		PickupLat:       39.78,
		PickupLng:       -89.65,
		DropoffLabel:    "200 Oak Ave, Springfield, IL",
		DropoffLat:      39.80,
		DropoffLng:      -89.60,
		DistanceMiles:   10.0,
		DurationMinutes: 20.0,
	}
}

// pendingTrip seeds a DriverPending trip ready for the assignment race.
func pendingTrip(f *fixture) *domain.Trip {
	trip := &domain.Trip{
		ID:              "trip-1",
		ShortCode:       "ab12cd",
		Status:          domain.TripStatusDriverPending,
		PassengerChatID: 100,
		PassengerPhone:  "+18505551234",
		PickupLabel:     "100 Main St, Springfield, IL",
		DropoffLabel:    "200 Oak Ave, Springfield, IL",
		DistanceMiles:   10.0,
		DurationMinutes: 20.0,
		Fare:            37.00,
		Version:         2,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	f.trips.AddTrip(trip)
	return trip
}
