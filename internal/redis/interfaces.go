package redis

import (
	"context"
	"time"
)

// CursorStoreInterface defines the interface for reconciliation cursors.
type CursorStoreInterface interface {
	Get(ctx context.Context, kind string) (uint64, bool, error)
	Set(ctx context.Context, kind string, block uint64) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireScanLock(ctx context.Context, kind string, ttl time.Duration) (bool, error)
	ReleaseScanLock(ctx context.Context, kind string) error
}

// Ensure concrete types implement interfaces.
var (
	_ CursorStoreInterface = (*CursorStore)(nil)
	_ LockStoreInterface   = (*LockStore)(nil)
)
