package resilience

import (
	"errors"
	"testing"
	"time"
)

func newTestBreaker(threshold int, openTimeout time.Duration, probes int) (*CircuitBreaker, *time.Time) {
	b := NewCircuitBreaker(threshold, openTimeout, probes)
	now := time.Date(2026, 6, 11, 18, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute, 1)

	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		b.RecordFailure()
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow after trip = %v, want ErrCircuitOpen", err)
	}
	if got := b.State(); got != CircuitStateOpen {
		t.Fatalf("State = %q, want open", got)
	}
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute, 1)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow: %v", err)
	}
}

func TestBreakerProbesAfterOpenWindow(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute, 1)

	b.RecordFailure()
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow while open = %v, want ErrCircuitOpen", err)
	}

	*now = now.Add(time.Minute)
	if got := b.State(); got != CircuitStateHalfOpen {
		t.Fatalf("State = %q, want half_open", got)
	}

	if err := b.Allow(); err != nil {
		t.Fatalf("probe Allow: %v", err)
	}
	// Probe limit is 1; a second concurrent probe is rejected.
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second probe Allow = %v, want ErrCircuitOpen", err)
	}

	b.RecordSuccess()
	if got := b.State(); got != CircuitStateClosed {
		t.Fatalf("State after probe success = %q, want closed", got)
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute, 1)

	b.RecordFailure()
	*now = now.Add(time.Minute)

	if err := b.Allow(); err != nil {
		t.Fatalf("probe Allow: %v", err)
	}
	b.RecordFailure()

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow after failed probe = %v, want ErrCircuitOpen", err)
	}
}
