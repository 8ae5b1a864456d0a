package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStore is the idempotency gate against redelivered inbound events.
// The transport is at-least-once: any event identifier may arrive more
// than once, and a redelivered "Accept" must not re-enter the
// assignment race after it already won or lost.
//
// Recording happens only after an event is processed successfully, so a
// failed event stays unrecorded and is safe to redeliver. The window
// between two concurrent deliveries of the same unrecorded event is
// closed by the trip store's conditional writes, not by this gate.
type DedupStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewDedupStore creates a DedupStore with the given retention window.
func NewDedupStore(client *redis.Client, retention time.Duration) *DedupStore {
	return &DedupStore{client: client, retention: retention}
}

func dedupKey(eventID string) string {
	return "dedup:event:" + eventID
}

// Seen reports whether eventID was recorded within the retention window.
func (s *DedupStore) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, dedupKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Record marks eventID as processed for the retention window.
func (s *DedupStore) Record(ctx context.Context, eventID string) error {
	return s.client.Set(ctx, dedupKey(eventID), "1", s.retention).Err()
}
