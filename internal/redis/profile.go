package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ProfileStore keeps per-passenger preferences that outlive a session,
// currently the saved phone number offered for reuse on the next booking.
type ProfileStore struct {
	client *redis.Client
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func profileKey(chatID int64) string {
	return "profile:" + strconv.FormatInt(chatID, 10)
}

// GetPhone returns the saved phone for a chat, or "" when none is saved.
func (s *ProfileStore) GetPhone(ctx context.Context, chatID int64) (string, error) {
	phone, err := s.client.HGet(ctx, profileKey(chatID), "phone").Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return phone, nil
}

// SetPhone saves a phone for a chat. Profiles have no expiry.
func (s *ProfileStore) SetPhone(ctx context.Context, chatID int64, phone string) error {
	return s.client.HSet(ctx, profileKey(chatID), "phone", phone).Err()
}
