package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/wcfantasy/backend/internal/domain/round"
)

// RoundService answers "what round is active" and "has its deadline
// passed". Read-only over configured windows.
type RoundService struct {
	roundRepo round.Repository
	now       func() time.Time
}

func NewRoundService(roundRepo round.Repository) *RoundService {
	return &RoundService{
		roundRepo: roundRepo,
		now:       time.Now,
	}
}

// CurrentRound returns the round whose window contains now, if any.
func (s *RoundService) CurrentRound(ctx context.Context) (round.Round, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoundService.CurrentRound")
	defer span.End()

	current, exists, err := s.roundRepo.CurrentAt(ctx, s.now().UTC())
	if err != nil {
		return round.Round{}, false, fmt.Errorf("get current round: %w", err)
	}

	return current, exists, nil
}

// DeadlinePassed reports whether the current round's transfer deadline has
// elapsed. Returns ErrNoActiveRound when no round window contains now.
func (s *RoundService) DeadlinePassed(ctx context.Context) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoundService.DeadlinePassed")
	defer span.End()

	now := s.now().UTC()
	current, exists, err := s.roundRepo.CurrentAt(ctx, now)
	if err != nil {
		return false, fmt.Errorf("get current round: %w", err)
	}
	if !exists {
		return false, ErrNoActiveRound
	}

	return current.DeadlinePassed(now), nil
}

func (s *RoundService) ListRounds(ctx context.Context) ([]round.Round, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoundService.ListRounds")
	defer span.End()

	items, err := s.roundRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}

	return items, nil
}
