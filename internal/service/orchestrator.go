package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ridebot/internal/domain"
	"ridebot/internal/observability"
	"ridebot/internal/redis"
	"ridebot/internal/telegram"
)

// Orchestrator receives one inbound event, passes it through the dedup
// gate, and routes it to the conversation or lifecycle side. Its effect
// is all-or-nothing per event: every mutation downstream is a single
// conditional write, and the event id is recorded only after success so
// a failed event is safe to redeliver.
type Orchestrator struct {
	dedup      redis.DedupStoreInterface
	conv       *ConversationService
	assignment *AssignmentService
	lifecycle  *LifecycleService
	logger     *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	dedup redis.DedupStoreInterface,
	conv *ConversationService,
	assignment *AssignmentService,
	lifecycle *LifecycleService,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		dedup:      dedup,
		conv:       conv,
		assignment: assignment,
		lifecycle:  lifecycle,
		logger:     logger,
	}
}

// HandleUpdate processes one inbound event end to end.
func (o *Orchestrator) HandleUpdate(ctx context.Context, update domain.Update) error {
	seen, err := o.dedup.Seen(ctx, update.EventID)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if seen {
		observability.DedupHitsTotal.Inc()
		o.logger.Info("duplicate event dropped", "event_id", update.EventID)
		return nil
	}

	observability.EventsTotal.WithLabelValues(string(update.Kind)).Inc()

	switch update.Kind {
	case domain.UpdateKindMessage:
		err = o.conv.HandleText(ctx, update.ChatID, update.Text)
	case domain.UpdateKindCallback:
		err = o.routeCallback(ctx, update)
	default:
		o.logger.Warn("unknown update kind", "kind", update.Kind)
		err = nil
	}
	if err != nil {
		return err
	}

	if err := o.dedup.Record(ctx, update.EventID); err != nil {
		// The event's effect is already committed and idempotent, so a
		// failed record only costs one harmless reprocessing attempt.
		o.logger.Warn("recording event id failed", "event_id", update.EventID, "error", err)
	}
	return nil
}

// routeCallback dispatches a button press by its verb. Trip-scoped
// verbs carry the trip short code; everything else belongs to the
// chat's dialog session.
func (o *Orchestrator) routeCallback(ctx context.Context, update domain.Update) error {
	verb, arg, _ := strings.Cut(update.CallbackData, ":")

	switch verb {
	case telegram.CallbackAccept:
		return o.assignment.Accept(ctx, arg, update.ChatID, update.MessageID)
	case telegram.CallbackDecline:
		return o.assignment.Decline(ctx, arg, update.ChatID, update.MessageID)
	case telegram.CallbackDepart:
		return o.lifecycle.Depart(ctx, arg, update.ChatID, update.MessageID)
	case telegram.CallbackFinish:
		return o.lifecycle.Finish(ctx, arg, update.ChatID, update.MessageID)
	case telegram.CallbackCancelTrip:
		return o.lifecycle.Cancel(ctx, arg, update.ChatID, update.MessageID)
	default:
		return o.conv.HandleCallback(ctx, update.ChatID, update.MessageID, update.CallbackData)
	}
}
