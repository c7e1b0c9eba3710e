package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wcfantasy/backend/internal/platform/logging"
)

func TestScheduler_RunsRegisteredJob(t *testing.T) {
	t.Parallel()

	s := New(logging.NewNop())
	var ticks atomic.Int32
	err := s.AddEvery("tick", 10*time.Millisecond, func(_ context.Context) {
		ticks.Add(1)
	})
	if err != nil {
		t.Fatalf("AddEvery error: %v", err)
	}

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("job never ran twice, ticks=%d", ticks.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduler_RejectsBadRegistrations(t *testing.T) {
	t.Parallel()

	s := New(logging.NewNop())
	if err := s.AddEvery("zero", 0, func(context.Context) {}); err == nil {
		t.Fatalf("expected error for non-positive interval")
	}
	if err := s.AddEvery("nil-job", time.Second, nil); err == nil {
		t.Fatalf("expected error for nil job")
	}
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	t.Parallel()

	s := New(logging.NewNop())
	started := make(chan struct{})
	var canceled atomic.Bool

	err := s.AddEvery("blocker", 10*time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		canceled.Store(true)
	})
	if err != nil {
		t.Fatalf("AddEvery error: %v", err)
	}

	s.Start()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("job never started")
	}

	// Stop must cancel the in-flight run and wait for it.
	s.Stop()
	if !canceled.Load() {
		t.Fatalf("job context was not canceled on stop")
	}
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	s := New(logging.NewNop())
	var concurrent atomic.Int32
	var maxSeen atomic.Int32

	err := s.AddEvery("slow", 10*time.Millisecond, func(_ context.Context) {
		running := concurrent.Add(1)
		if running > maxSeen.Load() {
			maxSeen.Store(running)
		}
		time.Sleep(50 * time.Millisecond)
		concurrent.Add(-1)
	})
	if err != nil {
		t.Fatalf("AddEvery error: %v", err)
	}

	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if maxSeen.Load() > 1 {
		t.Fatalf("overlapping runs observed: %d", maxSeen.Load())
	}
}
