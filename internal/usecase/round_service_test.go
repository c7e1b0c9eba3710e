package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wcfantasy/backend/internal/domain/round"
	"github.com/wcfantasy/backend/internal/infrastructure/repository/memory"
)

func newRoundServiceForTest(now time.Time) *RoundService {
	rounds := []round.Round{
		{
			ID:         "round-1",
			Name:       "Group Stage 1",
			StartAt:    now.Add(-48 * time.Hour),
			DeadlineAt: now.Add(-24 * time.Hour),
			EndAt:      now.Add(24 * time.Hour),
		},
		{
			ID:         "round-2",
			Name:       "Group Stage 2",
			StartAt:    now.Add(72 * time.Hour),
			DeadlineAt: now.Add(96 * time.Hour),
			EndAt:      now.Add(120 * time.Hour),
		},
	}
	service := NewRoundService(memory.NewRoundRepository(rounds))
	service.now = func() time.Time { return now }
	return service
}

func TestRoundService_CurrentRound(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	service := newRoundServiceForTest(now)

	current, exists, err := service.CurrentRound(context.Background())
	if err != nil {
		t.Fatalf("CurrentRound error: %v", err)
	}
	if !exists || current.ID != "round-1" {
		t.Fatalf("unexpected current round: exists=%v id=%q", exists, current.ID)
	}
}

func TestRoundService_CurrentRound_BetweenWindows(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	service := newRoundServiceForTest(now)
	service.now = func() time.Time { return now.Add(48 * time.Hour) }

	_, exists, err := service.CurrentRound(context.Background())
	if err != nil {
		t.Fatalf("CurrentRound error: %v", err)
	}
	if exists {
		t.Fatalf("expected no active round between windows")
	}
}

func TestRoundService_DeadlinePassed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	service := newRoundServiceForTest(now)

	passed, err := service.DeadlinePassed(context.Background())
	if err != nil {
		t.Fatalf("DeadlinePassed error: %v", err)
	}
	if !passed {
		t.Fatalf("round-1 deadline was a day ago")
	}

	service.now = func() time.Time { return now.Add(-36 * time.Hour) }
	passed, err = service.DeadlinePassed(context.Background())
	if err != nil {
		t.Fatalf("DeadlinePassed error: %v", err)
	}
	if passed {
		t.Fatalf("deadline still open 36h before now")
	}

	service.now = func() time.Time { return now.Add(48 * time.Hour) }
	if _, err := service.DeadlinePassed(context.Background()); !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("expected ErrNoActiveRound, got %v", err)
	}
}

func TestRoundService_ListRounds(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	service := newRoundServiceForTest(now)

	rounds, err := service.ListRounds(context.Background())
	if err != nil {
		t.Fatalf("ListRounds error: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(rounds))
	}
}
