package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ridebot/internal/domain"
	"ridebot/internal/observability"
	"ridebot/internal/redis"
	"ridebot/internal/repository"
	"ridebot/internal/telegram"
)

// LifecycleService advances a trip through its status graph. Every
// transition is a conditional write keyed on the version that was read;
// a conflict means another transition already committed and the action
// is discarded as stale, with only an informational note to the actor.
type LifecycleService struct {
	trips    repository.TripRepository
	prompts  redis.PromptStoreInterface
	notifier Notifier
	logger   *slog.Logger
	loc      *time.Location
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(
	trips repository.TripRepository,
	prompts redis.PromptStoreInterface,
	notifier Notifier,
	logger *slog.Logger,
	loc *time.Location,
) *LifecycleService {
	return &LifecycleService{
		trips:    trips,
		prompts:  prompts,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
	}
}

// Depart moves OnTheWay -> Started. Only the assigned driver's signal
// counts; anyone else gets an informational note.
func (s *LifecycleService) Depart(ctx context.Context, shortCode string, driverChatID, messageID int64) error {
	trip, err := s.loadForActor(ctx, shortCode, driverChatID, messageID)
	if trip == nil || err != nil {
		return err
	}

	if trip.DriverChatID != driverChatID {
		s.editBestEffort(ctx, driverChatID, messageID,
			fmt.Sprintf("ℹ️ Only the assigned driver can start trip #%s.", shortCode))
		return nil
	}
	if trip.Status != domain.TripStatusOnTheWay {
		return s.informAlreadyHandled(ctx, trip, driverChatID, messageID)
	}

	expected := trip.Version
	trip.Status = domain.TripStatusStarted
	if err := s.trips.UpdateIfVersion(ctx, trip, expected); err != nil {
		return s.handleConflict(ctx, err, shortCode, driverChatID, messageID)
	}

	s.editBestEffort(ctx, driverChatID, messageID, fmt.Sprintf("🚙 Trip #%s started.", shortCode))
	s.sendBestEffort(ctx, driverChatID, fmt.Sprintf("Trip #%s in progress.", shortCode),
		telegram.DriverProgressKeyboard(shortCode, string(domain.TripStatusStarted)))
	s.sendBestEffort(ctx, trip.PassengerChatID,
		fmt.Sprintf("🚙 Your trip #%s has started. Enjoy the ride!", shortCode), nil)
	return nil
}

// Finish moves Started -> Finished.
func (s *LifecycleService) Finish(ctx context.Context, shortCode string, driverChatID, messageID int64) error {
	trip, err := s.loadForActor(ctx, shortCode, driverChatID, messageID)
	if trip == nil || err != nil {
		return err
	}

	if trip.DriverChatID != driverChatID {
		s.editBestEffort(ctx, driverChatID, messageID,
			fmt.Sprintf("ℹ️ Only the assigned driver can finish trip #%s.", shortCode))
		return nil
	}
	if trip.Status != domain.TripStatusStarted {
		return s.informAlreadyHandled(ctx, trip, driverChatID, messageID)
	}

	expected := trip.Version
	trip.Status = domain.TripStatusFinished
	if err := s.trips.UpdateIfVersion(ctx, trip, expected); err != nil {
		return s.handleConflict(ctx, err, shortCode, driverChatID, messageID)
	}

	s.editBestEffort(ctx, driverChatID, messageID, fmt.Sprintf("🏁 Trip #%s finished.", shortCode))
	s.sendBestEffort(ctx, trip.PassengerChatID,
		fmt.Sprintf("🏁 Trip #%s finished. Fare: $%.2f. Thanks for riding!", shortCode, trip.Fare), nil)
	return nil
}

// Cancel moves a non-terminal, not-yet-started trip to Canceled. The
// passenger may cancel at any cancelable stage; a driver only once
// assigned. Cancel of a terminal trip is a no-op note.
func (s *LifecycleService) Cancel(ctx context.Context, shortCode string, actorChatID, messageID int64) error {
	trip, err := s.loadForActor(ctx, shortCode, actorChatID, messageID)
	if trip == nil || err != nil {
		return err
	}

	byPassenger := actorChatID == trip.PassengerChatID
	byDriver := trip.Assigned() && actorChatID == trip.DriverChatID
	if !byPassenger && !byDriver {
		s.editBestEffort(ctx, actorChatID, messageID,
			fmt.Sprintf("ℹ️ Trip #%s can only be canceled by its passenger or driver.", shortCode))
		return nil
	}

	if trip.Status.IsTerminal() {
		return s.informAlreadyHandled(ctx, trip, actorChatID, messageID)
	}
	if !trip.Status.CanTransitionTo(domain.TripStatusCanceled) {
		s.editBestEffort(ctx, actorChatID, messageID,
			fmt.Sprintf("ℹ️ Trip #%s is already underway and can no longer be canceled.", shortCode))
		return nil
	}

	expected := trip.Version
	wasPending := trip.Status == domain.TripStatusDriverPending
	trip.Status = domain.TripStatusCanceled
	if err := s.trips.UpdateIfVersion(ctx, trip, expected); err != nil {
		return s.handleConflict(ctx, err, shortCode, actorChatID, messageID)
	}

	s.editBestEffort(ctx, actorChatID, messageID, fmt.Sprintf("✖️ Trip #%s canceled.", shortCode))

	// Tell the other party.
	if byPassenger && trip.Assigned() {
		s.sendBestEffort(ctx, trip.DriverChatID,
			fmt.Sprintf("✖️ Trip #%s was canceled by the passenger.", shortCode), nil)
	}
	if byDriver {
		s.sendBestEffort(ctx, trip.PassengerChatID,
			fmt.Sprintf("✖️ Sorry, trip #%s was canceled by the driver.", shortCode), nil)
	}
	if byPassenger && !trip.Assigned() {
		s.sendBestEffort(ctx, trip.PassengerChatID,
			fmt.Sprintf("✖️ Request #%s canceled.", shortCode), nil)
	}

	// A canceled fan-out leaves live Accept buttons with the drivers.
	if wasPending {
		s.disablePrompts(ctx, trip, fmt.Sprintf("✖️ Ride #%s was canceled.", shortCode), 0)
	}
	return nil
}

// loadForActor fetches the trip behind a callback. A missing trip is
// "nothing to do": the actor's button is disabled and no error raised.
func (s *LifecycleService) loadForActor(ctx context.Context, shortCode string, actorChatID, messageID int64) (*domain.Trip, error) {
	trip, err := s.trips.GetByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.editBestEffort(ctx, actorChatID, messageID,
				fmt.Sprintf("❌ Ride #%s not found.", shortCode))
			return nil, nil
		}
		return nil, err
	}
	return trip, nil
}

// handleConflict reloads after a lost race and leaves only a note.
func (s *LifecycleService) handleConflict(ctx context.Context, err error, shortCode string, actorChatID, messageID int64) error {
	if !errors.Is(err, repository.ErrVersionConflict) {
		return err
	}

	trip, getErr := s.trips.GetByShortCode(ctx, shortCode)
	if getErr != nil || trip == nil {
		s.editBestEffort(ctx, actorChatID, messageID,
			fmt.Sprintf("ℹ️ Ride #%s was already handled.", shortCode))
		return nil
	}
	return s.informAlreadyHandled(ctx, trip, actorChatID, messageID)
}

// informAlreadyHandled tells a stale actor where the trip actually is.
func (s *LifecycleService) informAlreadyHandled(ctx context.Context, trip *domain.Trip, actorChatID, messageID int64) error {
	status := strings.ToLower(strings.ReplaceAll(string(trip.Status), "_", " "))
	s.editBestEffort(ctx, actorChatID, messageID,
		fmt.Sprintf("ℹ️ Ride #%s is already %s.", trip.ShortCode, status))
	return nil
}

// disablePrompts edits away every outstanding driver prompt for a trip,
// except the one belonging to skipChatID (0 skips nobody).
func (s *LifecycleService) disablePrompts(ctx context.Context, trip *domain.Trip, text string, skipChatID int64) {
	promptsByDriver, err := s.prompts.Prompts(ctx, trip.ID)
	if err != nil {
		s.logger.Warn("loading driver prompts failed", "trip_id", trip.ID, "error", err)
		return
	}

	for driverChatID, promptMessageID := range promptsByDriver {
		if driverChatID == skipChatID {
			continue
		}
		s.editBestEffort(ctx, driverChatID, promptMessageID, text)
	}

	if err := s.prompts.Clear(ctx, trip.ID); err != nil {
		s.logger.Warn("clearing driver prompts failed", "trip_id", trip.ID, "error", err)
	}
}

func (s *LifecycleService) sendBestEffort(ctx context.Context, chatID int64, text string, markup *telegram.Markup) {
	if _, err := s.notifier.Send(ctx, chatID, text, markup); err != nil {
		observability.OutboundSendFailures.Inc()
		s.logger.Warn("send failed", "chat_id", chatID, "error", err)
	}
}

func (s *LifecycleService) editBestEffort(ctx context.Context, chatID, messageID int64, text string) {
	if err := s.notifier.EditText(ctx, chatID, messageID, text); err != nil {
		s.logger.Warn("edit failed", "chat_id", chatID, "message_id", messageID, "error", err)
		// Fall back to stripping the stale keyboard so the user cannot
		// keep pressing buttons on a message we failed to rewrite.
		if clearErr := s.notifier.ClearKeyboard(ctx, chatID, messageID); clearErr != nil {
			s.logger.Warn("keyboard clear failed", "chat_id", chatID, "message_id", messageID, "error", clearErr)
		}
	}
}
