package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const promptTTL = 7 * 24 * time.Hour

// PromptStore remembers which message was sent to which driver during
// assignment fan-out, so the losing drivers' prompts can be edited to
// "already taken" once a winner commits. It also tracks declines.
type PromptStore struct {
	client *redis.Client
}

// NewPromptStore creates a new PromptStore.
func NewPromptStore(client *redis.Client) *PromptStore {
	return &PromptStore{client: client}
}

func promptKey(tripID string) string {
	return "prompts:trip:" + tripID
}

func declineKey(tripID string) string {
	return "declines:trip:" + tripID
}

// RecordPrompt stores the message id of a driver's prompt for a trip.
func (s *PromptStore) RecordPrompt(ctx context.Context, tripID string, driverChatID, messageID int64) error {
	key := promptKey(tripID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, strconv.FormatInt(driverChatID, 10), messageID)
	pipe.Expire(ctx, key, promptTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Prompts returns driver chat id -> prompt message id for a trip.
func (s *PromptStore) Prompts(ctx context.Context, tripID string) (map[int64]int64, error) {
	raw, err := s.client.HGetAll(ctx, promptKey(tripID)).Result()
	if err != nil {
		return nil, err
	}

	prompts := make(map[int64]int64, len(raw))
	for chatField, msgField := range raw {
		chatID, err := strconv.ParseInt(chatField, 10, 64)
		if err != nil {
			continue
		}
		messageID, err := strconv.ParseInt(msgField, 10, 64)
		if err != nil {
			continue
		}
		prompts[chatID] = messageID
	}
	return prompts, nil
}

// RecordDecline marks a driver as having declined a trip and returns
// the total number of declines recorded so far.
func (s *PromptStore) RecordDecline(ctx context.Context, tripID string, driverChatID int64) (int64, error) {
	key := declineKey(tripID)
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, key, driverChatID)
	pipe.Expire(ctx, key, promptTTL)
	count := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count.Val(), nil
}

// Clear drops prompt and decline bookkeeping for a trip.
func (s *PromptStore) Clear(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, promptKey(tripID), declineKey(tripID)).Err()
}
