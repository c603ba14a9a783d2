package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const cursorKeyPrefix = "reconcile:cursor:"

// CursorStore persists the last scanned ledger block per event kind so an
// externally scheduled reconciler can resume instead of rescanning from
// genesis. Rescanning is harmless (upserts are idempotent), just slow.
type CursorStore struct {
	client *redis.Client
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(client *redis.Client) *CursorStore {
	return &CursorStore{client: client}
}

// Get returns the stored cursor for an event kind. The second return is
// false when no cursor has been stored yet.
func (s *CursorStore) Get(ctx context.Context, kind string) (uint64, bool, error) {
	val, err := s.client.Get(ctx, cursorKeyPrefix+kind).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, err
	}

	block, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return block, true, nil
}

// Set stores the cursor for an event kind. Cursors never expire.
func (s *CursorStore) Set(ctx context.Context, kind string, block uint64) error {
	return s.client.Set(ctx, cursorKeyPrefix+kind, strconv.FormatUint(block, 10), 0).Err()
}
