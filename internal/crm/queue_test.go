package crm

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestQueueRunsJobsInOrder(t *testing.T) {
	q := NewQueue(1000)
	defer q.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var order []int

	results := make([]<-chan error, 0, 5)
	for i := 0; i < 5; i++ {
		i := i
		results = append(results, q.Submit(ctx, func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	for _, r := range results {
		if err := <-r; err != nil {
			t.Fatalf("job returned error: %v", err)
		}
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestQueueEnforcesMinimumInterval(t *testing.T) {
	q := NewQueue(50) // 20ms between calls
	defer q.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var stamps []time.Time

	var results []<-chan error
	for i := 0; i < 4; i++ {
		results = append(results, q.Submit(ctx, func(context.Context) error {
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
			return nil
		}))
	}
	for _, r := range results {
		<-r
	}

	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < 15*time.Millisecond {
			t.Fatalf("calls %d and %d only %v apart, want >= ~20ms", i-1, i, gap)
		}
	}
}

func TestQueueIntrospection(t *testing.T) {
	q := NewQueue(10)
	defer q.Close()

	if q.Interval() != 100*time.Millisecond {
		t.Fatalf("expected 100ms interval, got %v", q.Interval())
	}

	release := make(chan struct{})
	first := q.Submit(context.Background(), func(context.Context) error {
		<-release
		return nil
	})
	second := q.Submit(context.Background(), func(context.Context) error { return nil })

	if d := q.Depth(); d < 1 {
		t.Fatalf("expected pending depth >= 1, got %d", d)
	}

	close(release)
	<-first
	<-second

	if d := q.Depth(); d != 0 {
		t.Fatalf("expected depth 0 after drain, got %d", d)
	}
}

func TestQueueSkipsCancelledJobs(t *testing.T) {
	q := NewQueue(1000)
	defer q.Close()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := <-q.Submit(cancelled, func(context.Context) error {
		ran = true
		return nil
	})
	if err == nil {
		t.Fatal("expected context error for cancelled job")
	}
	if ran {
		t.Fatal("cancelled job must not run")
	}
}
