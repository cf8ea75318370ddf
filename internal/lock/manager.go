package lock

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"examseat/internal/cache"
)

// ErrNotAcquired is returned when the retry budget runs out without winning
// the lock. Callers surface it as "busy, try again", never block further.
var ErrNotAcquired = errors.New("lock: not acquired")

// Manager hands out short-lived named locks backed by the cache/lock service.
// A lock is a key holding an owner token; it self-expires via TTL, and release
// only succeeds with the exact token, so a timed-out holder cannot free a
// newer holder's lock.
type Manager struct {
	store cache.Store
}

func NewManager(store cache.Store) *Manager {
	return &Manager{store: store}
}

// Acquire tries up to maxAttempts times with a fixed delay between attempts.
// On success it returns the owner token to pass to Release.
func (m *Manager) Acquire(ctx context.Context, name string, maxAttempts int, retryDelay, ttl time.Duration) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	token := uuid.NewString()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		ok, err := m.store.SetNX(ctx, name, token, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
	}

	return "", ErrNotAcquired
}

// Release frees the lock if token still owns it. A mismatch (expired and
// re-acquired by someone else) is a no-op; infrastructure errors are logged
// and swallowed because the lock self-expires anyway.
func (m *Manager) Release(ctx context.Context, name, token string) bool {
	if token == "" {
		return false
	}
	ok, err := m.store.DelIfEquals(ctx, name, token)
	if err != nil {
		log.Printf("lock_release_failed name=%s err=%v", name, err)
		return false
	}
	return ok
}
