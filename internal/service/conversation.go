package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridebot/internal/domain"
	"ridebot/internal/fare"
	"ridebot/internal/observability"
	"ridebot/internal/redis"
	"ridebot/internal/repository"
	"ridebot/internal/route"
	"ridebot/internal/telegram"
)

const recentTripsLimit = 5

// Dispatcher hands a freshly confirmed trip to the assignment fan-out.
type Dispatcher interface {
	Dispatch(ctx context.Context, trip *domain.Trip) error
}

// ConversationService drives the passenger booking dialog. Each inbound
// message or button press advances the per-chat session by at most one
// step; invalid input re-prompts without touching collected fields.
type ConversationService struct {
	sessions   repository.SessionRepository
	trips      repository.TripRepository
	booking    repository.BookingStore
	routes     route.Provider
	fares      *fare.Calculator
	profiles   redis.ProfileStoreInterface
	notifier   Notifier
	dispatcher Dispatcher
	logger     *slog.Logger

	loc        *time.Location
	idleLimit  time.Duration
	pickerDays int

	now func() time.Time
}

// NewConversationService creates a new ConversationService.
func NewConversationService(
	sessions repository.SessionRepository,
	trips repository.TripRepository,
	booking repository.BookingStore,
	routes route.Provider,
	fares *fare.Calculator,
	profiles redis.ProfileStoreInterface,
	notifier Notifier,
	dispatcher Dispatcher,
	logger *slog.Logger,
	loc *time.Location,
	idleLimit time.Duration,
	pickerDays int,
) *ConversationService {
	return &ConversationService{
		sessions:   sessions,
		trips:      trips,
		booking:    booking,
		routes:     routes,
		fares:      fares,
		profiles:   profiles,
		notifier:   notifier,
		dispatcher: dispatcher,
		logger:     logger,
		loc:        loc,
		idleLimit:  idleLimit,
		pickerDays: pickerDays,
		now:        time.Now,
	}
}

// HandleText processes a free-text message from a passenger chat.
func (s *ConversationService) HandleText(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)

	switch text {
	case "/start", "/menu":
		if err := s.sessions.Delete(ctx, chatID); err != nil {
			return err
		}
		if err := s.notifier.SetCommands(ctx); err != nil {
			s.logger.Warn("set commands failed", "error", err)
		}
		s.send(ctx, chatID, "Hello! I’m your ride assistant.", telegram.MainMenu())
		return s.putSession(ctx, &domain.Session{ChatID: chatID, State: domain.SessionStateIdle})

	case "/newride", telegram.MenuNewRide:
		if err := s.sessions.Delete(ctx, chatID); err != nil {
			return err
		}
		s.send(ctx, chatID, "Please enter the pickup address.", nil)
		return s.putSession(ctx, &domain.Session{ChatID: chatID, State: domain.SessionStateAwaitingPickup})

	case "/mytrips", telegram.MenuMyTrips:
		trips, err := s.trips.ListRecentByChat(ctx, chatID, recentTripsLimit)
		if err != nil {
			return err
		}
		s.send(ctx, chatID, formatTripList(trips, s.loc), telegram.MainMenu())
		return nil

	case "/help", telegram.MenuHelp:
		s.send(ctx, chatID,
			"Flow:\n1) Pickup & drop-off\n2) Pick date & time\n"+
				"3) Enter phone (saved for next time)\n4) Confirm — driver will contact you via SMS.",
			telegram.MainMenu())
		return nil
	}

	session, err := s.getSession(ctx, chatID)
	if err != nil {
		return err
	}

	switch session.State {
	case domain.SessionStateAwaitingPickup:
		return s.collectPickup(ctx, session, text)
	case domain.SessionStateAwaitingDropoff:
		return s.collectDropoff(ctx, session, text)
	case domain.SessionStateAwaitingScheduleDate:
		return s.collectDateText(ctx, session, text)
	case domain.SessionStateAwaitingScheduleTime:
		return s.collectTimeText(ctx, session, text)
	case domain.SessionStateAwaitingPhone:
		return s.collectPhone(ctx, session, text)
	case domain.SessionStateAwaitingScheduleChoice, domain.SessionStateAwaitingConfirmation:
		s.send(ctx, chatID, "Please use the buttons above.", nil)
		return nil
	default:
		s.send(ctx, chatID, "Choose an action:", telegram.MainMenu())
		return nil
	}
}

// HandleCallback processes a dialog button press from a passenger chat.
func (s *ConversationService) HandleCallback(ctx context.Context, chatID, messageID int64, data string) error {
	verb, arg, _ := strings.Cut(data, ":")

	session, err := s.getSession(ctx, chatID)
	if err != nil {
		return err
	}

	switch verb {
	case telegram.CallbackRideNow:
		if session.State != domain.SessionStateAwaitingScheduleChoice {
			return s.staleButton(ctx, chatID, messageID)
		}
		session.ScheduledAt = time.Time{}
		s.edit(ctx, chatID, messageID, "✅ Pickup: as soon as possible")
		return s.enterPhoneStep(ctx, session)

	case telegram.CallbackDateSelect:
		if session.State != domain.SessionStateAwaitingScheduleChoice &&
			session.State != domain.SessionStateAwaitingScheduleDate {
			return s.staleButton(ctx, chatID, messageID)
		}
		session.State = domain.SessionStateAwaitingScheduleDate
		s.send(ctx, chatID, "Choose a date (or type one like 2025-09-21):",
			telegram.DateKeyboard(s.now(), s.loc, s.pickerDays))
		return s.putSession(ctx, session)

	case telegram.CallbackDatePick:
		if session.State != domain.SessionStateAwaitingScheduleChoice &&
			session.State != domain.SessionStateAwaitingScheduleDate {
			return s.staleButton(ctx, chatID, messageID)
		}
		date, ok := ParseDate(arg, s.now(), s.loc)
		if !ok {
			return s.staleButton(ctx, chatID, messageID)
		}
		s.edit(ctx, chatID, messageID, "✅ Date: "+date.Format("2006-01-02"))
		return s.enterTimeStep(ctx, session, date)

	case telegram.CallbackTimePick:
		if session.State != domain.SessionStateAwaitingScheduleTime {
			return s.staleButton(ctx, chatID, messageID)
		}
		epoch, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return s.staleButton(ctx, chatID, messageID)
		}
		session.ScheduledAt = RoundUpTo15m(time.Unix(epoch, 0).In(s.loc))
		s.edit(ctx, chatID, messageID, "✅ Time: "+telegram.FormatClock(session.ScheduledAt))
		return s.enterPhoneStep(ctx, session)

	case telegram.CallbackUsePhone:
		if session.State != domain.SessionStateAwaitingPhone {
			return s.staleButton(ctx, chatID, messageID)
		}
		saved, err := s.profiles.GetPhone(ctx, chatID)
		if err != nil {
			return err
		}
		if saved == "" {
			s.send(ctx, chatID, "No saved phone found. Please enter your number.", nil)
			return nil
		}
		session.Phone = saved
		s.edit(ctx, chatID, messageID, "Using saved phone: "+saved)
		return s.enterConfirmation(ctx, session)

	case telegram.CallbackChangePhone:
		if session.State != domain.SessionStateAwaitingPhone {
			return s.staleButton(ctx, chatID, messageID)
		}
		s.edit(ctx, chatID, messageID, "Please enter your phone number.")
		return nil

	case telegram.CallbackConfirm:
		if session.State != domain.SessionStateAwaitingConfirmation {
			return s.staleButton(ctx, chatID, messageID)
		}
		return s.confirm(ctx, session, messageID)

	case telegram.CallbackAbort:
		if err := s.sessions.Delete(ctx, chatID); err != nil {
			return err
		}
		s.edit(ctx, chatID, messageID, "✖️ Request canceled.")
		s.send(ctx, chatID, "Choose an action:", telegram.MainMenu())
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCallback, verb)
	}
}

func (s *ConversationService) collectPickup(ctx context.Context, session *domain.Session, text string) error {
	if text == "" {
		s.send(ctx, session.ChatID, "Please enter the pickup address.", nil)
		return nil
	}

	session.PickupText = text
	session.State = domain.SessionStateAwaitingDropoff
	s.send(ctx, session.ChatID, "Got it. Now enter the drop-off address:", nil)
	return s.putSession(ctx, session)
}

func (s *ConversationService) collectDropoff(ctx context.Context, session *domain.Session, text string) error {
	if text == "" {
		s.send(ctx, session.ChatID, "Please enter the drop-off address.", nil)
		return nil
	}

	leg, err := s.routes.Route(ctx, session.PickupText, text)
	if err != nil {
		// Provider failures are recoverable: the session stays where
		// it is and the passenger can retry with better addresses.
		s.logger.Warn("route lookup failed", "chat_id", session.ChatID, "error", err)
		if errors.Is(err, route.ErrAddressNotFound) {
			s.send(ctx, session.ChatID,
				"Could not find one of the addresses. Please include street, city, and state, then send the drop-off again.", nil)
		} else {
			s.send(ctx, session.ChatID,
				"Could not calculate the route. Please check the addresses and send the drop-off again.", nil)
		}
		return nil
	}

	session.DropoffText = text
	session.PickupLabel = leg.PickupLabel
	session.PickupLat = leg.PickupLat
	session.PickupLng = leg.PickupLng
	session.DropoffLabel = leg.DropoffLabel
	session.DropoffLat = leg.DropoffLat
	session.DropoffLng = leg.DropoffLng
	session.DistanceMiles = leg.DistanceMiles
	session.DurationMinutes = leg.DurationMinutes
	session.State = domain.SessionStateRouteComputed

	s.send(ctx, session.ChatID, formatRouteSummary(session), telegram.ScheduleChoiceKeyboard())
	session.State = domain.SessionStateAwaitingScheduleChoice
	return s.putSession(ctx, session)
}

func (s *ConversationService) collectDateText(ctx context.Context, session *domain.Session, text string) error {
	date, ok := ParseDate(text, s.now(), s.loc)
	if !ok {
		s.send(ctx, session.ChatID,
			"I didn’t understand that date. Try \"today\", \"tomorrow\", or 2025-09-21.", nil)
		return nil
	}
	return s.enterTimeStep(ctx, session, date)
}

func (s *ConversationService) collectTimeText(ctx context.Context, session *domain.Session, text string) error {
	hour, minute, ok := ParseClock(text)
	if !ok {
		s.send(ctx, session.ChatID,
			"I didn’t understand that time. Try \"6pm\", \"6:30 pm\", or 18:30.", nil)
		return nil
	}

	date, ok := ParseDate(session.ScheduleDate, s.now(), s.loc)
	if !ok {
		// Date field lost its meaning, send the passenger back a step.
		session.State = domain.SessionStateAwaitingScheduleDate
		s.send(ctx, session.ChatID, "Please pick the date first.",
			telegram.DateKeyboard(s.now(), s.loc, s.pickerDays))
		return s.putSession(ctx, session)
	}

	session.ScheduledAt = RoundUpTo15m(
		time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, s.loc))
	return s.enterPhoneStep(ctx, session)
}

func (s *ConversationService) collectPhone(ctx context.Context, session *domain.Session, text string) error {
	phone := NormalizePhone(text)
	if phone == "" {
		s.send(ctx, session.ChatID,
			"Phone format is invalid. Please enter like +1 850 555 1234.", nil)
		return nil
	}

	session.Phone = phone
	if err := s.profiles.SetPhone(ctx, session.ChatID, phone); err != nil {
		s.logger.Warn("saving phone profile failed", "chat_id", session.ChatID, "error", err)
	}
	return s.enterConfirmation(ctx, session)
}

// enterTimeStep stores the picked date and prompts for a time slot.
func (s *ConversationService) enterTimeStep(ctx context.Context, session *domain.Session, date time.Time) error {
	session.ScheduleDate = date.Format("2006-01-02")
	session.State = domain.SessionStateAwaitingScheduleTime
	s.send(ctx, session.ChatID,
		fmt.Sprintf("Choose a time for %s (or type one like 6:30 pm):", session.ScheduleDate),
		telegram.TimeSlotKeyboard(date.Year(), date.Month(), date.Day(), s.loc))
	return s.putSession(ctx, session)
}

// enterPhoneStep asks for the phone, offering the saved one when present.
func (s *ConversationService) enterPhoneStep(ctx context.Context, session *domain.Session) error {
	session.State = domain.SessionStateAwaitingPhone

	saved, err := s.profiles.GetPhone(ctx, session.ChatID)
	if err != nil {
		return err
	}
	if saved != "" {
		s.send(ctx, session.ChatID, "Time saved. Use your saved phone?", telegram.PhoneChoiceKeyboard())
	} else {
		s.send(ctx, session.ChatID, "Time saved. Please enter your phone number.", nil)
	}
	return s.putSession(ctx, session)
}

// enterConfirmation computes the fare, freezes it on the session, and
// shows the final review. The fare is never recomputed after this point.
func (s *ConversationService) enterConfirmation(ctx context.Context, session *domain.Session) error {
	session.Fare = s.fares.Calculate(session.DistanceMiles, session.DurationMinutes)
	session.State = domain.SessionStateAwaitingConfirmation
	s.send(ctx, session.ChatID, formatConfirmation(session, s.loc), telegram.ConfirmKeyboard(session.Fare))
	return s.putSession(ctx, session)
}

// confirm converts the session into a Trip and hands it to assignment.
func (s *ConversationService) confirm(ctx context.Context, session *domain.Session, messageID int64) error {
	if session.Phone == "" || session.PickupLabel == "" || session.DropoffLabel == "" {
		return fmt.Errorf("%w: chat %d", ErrSessionIncomplete, session.ChatID)
	}

	now := s.now()
	trip := &domain.Trip{
		ID:              uuid.New().String(),
		ShortCode:       newShortCode(),
		Status:          domain.TripStatusRequested,
		PassengerChatID: session.ChatID,
		PassengerPhone:  session.Phone,
		PickupLabel:     session.PickupLabel,
		PickupLat:       session.PickupLat,
		PickupLng:       session.PickupLng,
		DropoffLabel:    session.DropoffLabel,
		DropoffLat:      session.DropoffLat,
		DropoffLng:      session.DropoffLng,
		DistanceMiles:   session.DistanceMiles,
		DurationMinutes: session.DurationMinutes,
		Fare:            session.Fare,
		ScheduledAt:     session.ScheduledAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// One transaction: a confirm that fails partway leaves no trip
	// behind, so the redelivered event re-runs cleanly instead of
	// inserting a duplicate.
	if err := s.booking.ConfirmBooking(ctx, trip); err != nil {
		return err
	}
	observability.TripsConfirmedTotal.Inc()

	s.edit(ctx, session.ChatID, messageID,
		fmt.Sprintf("✅ Request #%s sent to the driver.\nDriver will contact you via SMS.", trip.ShortCode))
	s.send(ctx, session.ChatID, "You can cancel while we look for a driver:",
		telegram.PassengerCancelKeyboard(trip.ShortCode))

	return s.dispatcher.Dispatch(ctx, trip)
}

// getSession loads the chat's session, treating a missing or expired
// one as a fresh idle session.
func (s *ConversationService) getSession(ctx context.Context, chatID int64) (*domain.Session, error) {
	session, err := s.sessions.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.Session{ChatID: chatID, State: domain.SessionStateIdle}, nil
		}
		return nil, err
	}
	if session.ExpiredAfter(s.idleLimit, s.now()) {
		return &domain.Session{ChatID: chatID, State: domain.SessionStateIdle}, nil
	}
	return session, nil
}

func (s *ConversationService) putSession(ctx context.Context, session *domain.Session) error {
	session.UpdatedAt = s.now()
	return s.sessions.Put(ctx, session)
}

// staleButton quietly disables a button pressed out of order.
func (s *ConversationService) staleButton(ctx context.Context, chatID, messageID int64) error {
	if err := s.notifier.ClearKeyboard(ctx, chatID, messageID); err != nil {
		s.logger.Warn("clearing stale keyboard failed", "chat_id", chatID, "error", err)
	}
	return nil
}

func (s *ConversationService) send(ctx context.Context, chatID int64, text string, markup *telegram.Markup) {
	if _, err := s.notifier.Send(ctx, chatID, text, markup); err != nil {
		observability.OutboundSendFailures.Inc()
		s.logger.Warn("send failed", "chat_id", chatID, "error", err)
	}
}

func (s *ConversationService) edit(ctx context.Context, chatID, messageID int64, text string) {
	if err := s.notifier.EditText(ctx, chatID, messageID, text); err != nil {
		s.logger.Warn("edit failed", "chat_id", chatID, "message_id", messageID, "error", err)
		// Fall back to stripping the stale keyboard so the user cannot
		// keep pressing buttons on a message we failed to rewrite.
		if clearErr := s.notifier.ClearKeyboard(ctx, chatID, messageID); clearErr != nil {
			s.logger.Warn("keyboard clear failed", "chat_id", chatID, "message_id", messageID, "error", clearErr)
		}
	}
}

const shortCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newShortCode generates the 6-character user-facing trip identifier.
func newShortCode() string {
	code := make([]byte, 6)
	for i := range code {
		code[i] = shortCodeAlphabet[rand.Intn(len(shortCodeAlphabet))]
	}
	return string(code)
}
