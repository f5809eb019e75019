package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RefreshLockKey is the settings key guarding concurrent ingestion runs.
const RefreshLockKey = "news_refresh_lock"

// TryAcquireLock attempts an atomic acquire of a TTL-bound lock stored in the
// settings table. The value is the absolute expiry as epoch seconds, so the
// payload and the conditional update both encode expiry. An expired entry is
// taken over in the same statement; sqlite serializes writers, making the
// conditional upsert an atomic add-if-absent across processes sharing the DB.
//
// On contention it returns acquired=false and the remaining hold time
// (at least one second). The lock is never released early; it lapses when the
// stored expiry passes.
func (s *Store) TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	now := time.Now()
	expiry := now.Add(ttl).Unix()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		WHERE CAST(settings.value AS INTEGER) <= ?`,
		key, strconv.FormatInt(expiry, 10), now.UTC(), now.Unix(),
	)
	if err != nil {
		return false, 0, fmt.Errorf("acquire lock %q: %w", key, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("acquire lock %q: %w", key, err)
	}
	if affected > 0 {
		return true, ttl, nil
	}

	var stored string
	if err := s.db.GetContext(ctx, &stored, `SELECT value FROM settings WHERE key = ?`, key); err != nil {
		return false, time.Second, nil //nolint:nilerr // holder raced us; report minimum wait
	}

	heldUntil, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		return false, time.Second, nil
	}

	remaining := time.Duration(heldUntil-now.Unix()) * time.Second
	if remaining < time.Second {
		remaining = time.Second
	}
	return false, remaining, nil
}
