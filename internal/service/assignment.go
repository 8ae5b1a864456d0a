package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ridebot/internal/domain"
	"ridebot/internal/observability"
	"ridebot/internal/redis"
	"ridebot/internal/repository"
	"ridebot/internal/telegram"
)

// AssignmentService fans a new trip out to every candidate driver and
// resolves the first acceptance into a durable, race-free assignment.
// The store's conditional write is the only arbiter: with N drivers
// accepting concurrently, exactly one write sees the version it read.
type AssignmentService struct {
	trips    repository.TripRepository
	prompts  redis.PromptStoreInterface
	notifier Notifier
	drivers  []domain.Driver
	logger   *slog.Logger
	loc      *time.Location

	lifecycle *LifecycleService
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	trips repository.TripRepository,
	prompts redis.PromptStoreInterface,
	notifier Notifier,
	drivers []domain.Driver,
	lifecycle *LifecycleService,
	logger *slog.Logger,
	loc *time.Location,
) *AssignmentService {
	return &AssignmentService{
		trips:     trips,
		prompts:   prompts,
		notifier:  notifier,
		drivers:   drivers,
		lifecycle: lifecycle,
		logger:    logger,
		loc:       loc,
	}
}

// Dispatch moves a confirmed trip from Requested to DriverPending and
// notifies every candidate driver. With an empty candidate set the trip
// stays DriverPending until an external retry or a passenger cancel.
func (s *AssignmentService) Dispatch(ctx context.Context, trip *domain.Trip) error {
	if trip.Status == domain.TripStatusRequested {
		expected := trip.Version
		trip.Status = domain.TripStatusDriverPending
		if err := s.trips.UpdateIfVersion(ctx, trip, expected); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				// Another invocation already dispatched or canceled it.
				return nil
			}
			return err
		}
	}

	if len(s.drivers) == 0 {
		s.logger.Warn("no driver candidates configured", "trip_id", trip.ID)
		return nil
	}

	s.fanOut(ctx, trip)
	return nil
}

// Rebroadcast re-runs fan-out for a trip still waiting on a driver.
// This is the hook for an external retry scheduler.
func (s *AssignmentService) Rebroadcast(ctx context.Context, tripID string) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}

	switch trip.Status {
	case domain.TripStatusRequested:
		return s.Dispatch(ctx, trip)
	case domain.TripStatusDriverPending:
		s.fanOut(ctx, trip)
		return nil
	default:
		return nil
	}
}

// fanOut sends the offer prompt to every candidate. Sends are fire and
// forget per driver: one failed send never blocks the rest, it only
// means that driver cannot accept.
func (s *AssignmentService) fanOut(ctx context.Context, trip *domain.Trip) {
	offer := formatDriverOffer(trip, s.loc)
	for _, driver := range s.drivers {
		messageID, err := s.notifier.Send(ctx, driver.ChatID, offer, telegram.DriverOfferKeyboard(trip.ShortCode))
		if err != nil {
			observability.OutboundSendFailures.Inc()
			s.logger.Warn("driver offer send failed",
				"trip_id", trip.ID, "driver_chat_id", driver.ChatID, "error", err)
			continue
		}
		if err := s.prompts.RecordPrompt(ctx, trip.ID, driver.ChatID, messageID); err != nil {
			s.logger.Warn("recording driver prompt failed",
				"trip_id", trip.ID, "driver_chat_id", driver.ChatID, "error", err)
		}
	}
}

// Accept resolves a driver's acceptance. The driver fields and the
// DriverPending -> OnTheWay status move commit in the same conditional
// write, so a losing acceptance can never leave a partial assignment.
func (s *AssignmentService) Accept(ctx context.Context, shortCode string, driverChatID, messageID int64) error {
	trip, err := s.lifecycle.loadForActor(ctx, shortCode, driverChatID, messageID)
	if trip == nil || err != nil {
		return err
	}

	if trip.Status != domain.TripStatusDriverPending {
		return s.informTaken(ctx, trip, driverChatID, messageID)
	}

	driver, ok := s.driverByChatID(driverChatID)
	if !ok {
		s.logger.Warn("accept from unknown driver", "trip_id", trip.ID, "chat_id", driverChatID)
		s.lifecycle.editBestEffort(ctx, driverChatID, messageID,
			fmt.Sprintf("ℹ️ Ride #%s is not available to you.", shortCode))
		return nil
	}

	expected := trip.Version
	trip.Status = domain.TripStatusOnTheWay
	trip.DriverChatID = driver.ChatID
	trip.DriverName = driver.Name
	trip.DriverCar = driver.Car

	if err := s.trips.UpdateIfVersion(ctx, trip, expected); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// Lost the race. The winner's write already owns the trip.
			observability.AssignmentConflictsTotal.Inc()
			reloaded, getErr := s.trips.GetByShortCode(ctx, shortCode)
			if getErr != nil || reloaded == nil {
				s.lifecycle.editBestEffort(ctx, driverChatID, messageID,
					fmt.Sprintf("ℹ️ Ride #%s was already handled.", shortCode))
				return nil
			}
			return s.informTaken(ctx, reloaded, driverChatID, messageID)
		}
		return err
	}

	observability.AssignmentWinsTotal.Inc()

	s.lifecycle.editBestEffort(ctx, driverChatID, messageID,
		fmt.Sprintf("✅ Ride #%s accepted.", shortCode))
	s.lifecycle.sendBestEffort(ctx, driverChatID,
		fmt.Sprintf("Ride #%s is yours. Client phone: %s", shortCode, trip.PassengerPhone),
		telegram.DriverProgressKeyboard(shortCode, string(domain.TripStatusOnTheWay)))

	s.lifecycle.sendBestEffort(ctx, trip.PassengerChatID,
		fmt.Sprintf("✅ Your request #%s has been confirmed.\nDriver: %s\nCar: %s\nDriver will contact you via SMS.",
			shortCode, driver.Name, driver.Car), nil)

	// Losing drivers see "already taken" instead of a live button.
	s.lifecycle.disablePrompts(ctx, trip,
		fmt.Sprintf("ℹ️ Ride #%s already accepted by %s.", shortCode, driver.Name), driverChatID)
	return nil
}

// Decline records a driver's refusal. The trip stays DriverPending;
// only when every candidate has declined is the passenger told nobody
// is available (the trip remains cancelable or rebroadcastable).
func (s *AssignmentService) Decline(ctx context.Context, shortCode string, driverChatID, messageID int64) error {
	trip, err := s.lifecycle.loadForActor(ctx, shortCode, driverChatID, messageID)
	if trip == nil || err != nil {
		return err
	}

	s.lifecycle.editBestEffort(ctx, driverChatID, messageID,
		fmt.Sprintf("❌ Ride #%s declined.", shortCode))

	if trip.Status != domain.TripStatusDriverPending {
		return nil
	}

	declines, err := s.prompts.RecordDecline(ctx, trip.ID, driverChatID)
	if err != nil {
		s.logger.Warn("recording decline failed", "trip_id", trip.ID, "error", err)
		return nil
	}

	if int(declines) >= len(s.drivers) && len(s.drivers) > 0 {
		s.lifecycle.sendBestEffort(ctx, trip.PassengerChatID,
			fmt.Sprintf("❌ Sorry, no driver is available for request #%s right now. You can cancel or we will keep trying.",
				shortCode), telegram.PassengerCancelKeyboard(shortCode))
	}
	return nil
}

// informTaken tells a late driver who got the trip.
func (s *AssignmentService) informTaken(ctx context.Context, trip *domain.Trip, driverChatID, messageID int64) error {
	if trip.Status == domain.TripStatusOnTheWay || trip.Status == domain.TripStatusStarted {
		takenBy := trip.DriverName
		if takenBy == "" {
			takenBy = "another driver"
		}
		s.lifecycle.editBestEffort(ctx, driverChatID, messageID,
			fmt.Sprintf("ℹ️ Ride #%s already accepted by %s.", trip.ShortCode, takenBy))
		return nil
	}
	return s.lifecycle.informAlreadyHandled(ctx, trip, driverChatID, messageID)
}

func (s *AssignmentService) driverByChatID(chatID int64) (domain.Driver, bool) {
	for _, d := range s.drivers {
		if d.ChatID == chatID {
			return d, true
		}
	}
	return domain.Driver{}, false
}
