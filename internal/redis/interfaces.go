package redis

import "context"

// DedupStoreInterface defines the idempotency gate contract.
type DedupStoreInterface interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID string) error
}

// ProfileStoreInterface defines saved-phone lookup and storage.
type ProfileStoreInterface interface {
	GetPhone(ctx context.Context, chatID int64) (string, error)
	SetPhone(ctx context.Context, chatID int64, phone string) error
}

// PromptStoreInterface defines driver prompt bookkeeping for fan-out.
type PromptStoreInterface interface {
	RecordPrompt(ctx context.Context, tripID string, driverChatID, messageID int64) error
	Prompts(ctx context.Context, tripID string) (map[int64]int64, error)
	RecordDecline(ctx context.Context, tripID string, driverChatID int64) (int64, error)
	Clear(ctx context.Context, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ DedupStoreInterface   = (*DedupStore)(nil)
	_ ProfileStoreInterface = (*ProfileStore)(nil)
	_ PromptStoreInterface  = (*PromptStore)(nil)
)
