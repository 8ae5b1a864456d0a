package service

import (
	"context"

	"ridebot/internal/telegram"
)

// Notifier delivers outbound chat messages. Sends are best effort:
// services log failures and continue, they never retry.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, markup *telegram.Markup) (int64, error)
	EditText(ctx context.Context, chatID, messageID int64, text string) error
	ClearKeyboard(ctx context.Context, chatID, messageID int64) error
	SetCommands(ctx context.Context) error
}

// Ensure the Bot API client satisfies Notifier.
var _ Notifier = (*telegram.Client)(nil)
