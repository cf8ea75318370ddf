package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"examseat/internal/cache"
)

func TestAcquireAndRelease(t *testing.T) {
	m := NewManager(cache.NewMemoryStore())
	ctx := context.Background()

	token, err := m.Acquire(ctx, "lock:session:abc", 3, time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	if !m.Release(ctx, "lock:session:abc", token) {
		t.Fatal("expected release to succeed with matching token")
	}
}

func TestAcquireFailsWhenHeld(t *testing.T) {
	store := cache.NewMemoryStore()
	m := NewManager(store)
	ctx := context.Background()

	first, err := m.Acquire(ctx, "lock:session:abc", 1, 0, time.Minute)
	if err != nil {
		t.Fatalf("first Acquire returned error: %v", err)
	}

	_, err = m.Acquire(ctx, "lock:session:abc", 3, time.Millisecond, time.Minute)
	if !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}

	m.Release(ctx, "lock:session:abc", first)

	if _, err := m.Acquire(ctx, "lock:session:abc", 1, 0, time.Minute); err != nil {
		t.Fatalf("Acquire after release returned error: %v", err)
	}
}

func TestStaleTokenCannotReleaseNewerLock(t *testing.T) {
	store := cache.NewMemoryStore()
	m := NewManager(store)
	ctx := context.Background()

	stale, err := m.Acquire(ctx, "lock:student:s1:date:2026-09-14", 1, 0, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	time.Sleep(20 * time.Millisecond) // let the TTL expire

	fresh, err := m.Acquire(ctx, "lock:student:s1:date:2026-09-14", 1, 0, time.Minute)
	if err != nil {
		t.Fatalf("re-Acquire after expiry returned error: %v", err)
	}

	if m.Release(ctx, "lock:student:s1:date:2026-09-14", stale) {
		t.Fatal("stale token must not release the newer holder's lock")
	}
	if !m.Release(ctx, "lock:student:s1:date:2026-09-14", fresh) {
		t.Fatal("fresh token should still own the lock")
	}
}

func TestAcquireRetriesUntilFreed(t *testing.T) {
	store := cache.NewMemoryStore()
	m := NewManager(store)
	ctx := context.Background()

	token, err := m.Acquire(ctx, "lock:session:xyz", 1, 0, time.Minute)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Release(ctx, "lock:session:xyz", token)
	}()

	if _, err := m.Acquire(ctx, "lock:session:xyz", 20, 5*time.Millisecond, time.Minute); err != nil {
		t.Fatalf("expected acquisition within retry budget, got %v", err)
	}
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	store := cache.NewMemoryStore()
	m := NewManager(store)
	ctx := context.Background()

	const goroutines = 16
	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Acquire(ctx, "lock:session:contended", 1, 0, time.Minute); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}
