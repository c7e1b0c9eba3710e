package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wcfantasy/backend/internal/domain/match"
	"github.com/wcfantasy/backend/internal/domain/player"
)

const neutralDifficulty = 3

// FDRService estimates fixture difficulty for a team's next scheduled
// match from the opponent's historical scoring rate.
type FDRService struct {
	matchRepo  match.Repository
	playerRepo player.Repository
	now        func() time.Time
}

func NewFDRService(matchRepo match.Repository, playerRepo player.Repository) *FDRService {
	return &FDRService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		now:        time.Now,
	}
}

// TeamUpcomingFDR returns the 1-5 difficulty of the team's next scheduled
// match. ok is false when no scheduled match is upcoming.
func (s *FDRService) TeamUpcomingFDR(ctx context.Context, teamID string) (int, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FDRService.TeamUpcomingFDR")
	defer span.End()

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return 0, false, fmt.Errorf("%w: team_id is required", ErrInvalidInput)
	}

	next, exists, err := s.matchRepo.NextScheduledByTeam(ctx, teamID, s.now())
	if err != nil {
		return 0, false, fmt.Errorf("next scheduled match: %w", err)
	}
	if !exists {
		return 0, false, nil
	}

	opponentID := next.HomeTeamID
	if opponentID == teamID {
		opponentID = next.AwayTeamID
	}

	rating, err := s.opponentDifficulty(ctx, opponentID)
	if err != nil {
		return 0, false, err
	}

	return rating, true, nil
}

// PlayerUpcomingFDR is TeamUpcomingFDR keyed by player.
func (s *FDRService) PlayerUpcomingFDR(ctx context.Context, playerID string) (int, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FDRService.PlayerUpcomingFDR")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return 0, false, fmt.Errorf("%w: player_id is required", ErrInvalidInput)
	}

	p, exists, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return 0, false, fmt.Errorf("get player: %w", err)
	}
	if !exists {
		return 0, false, fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	}

	return s.TeamUpcomingFDR(ctx, p.TeamID)
}

func (s *FDRService) opponentDifficulty(ctx context.Context, opponentID string) (int, error) {
	finished, err := s.matchRepo.ListFinishedByTeam(ctx, opponentID)
	if err != nil {
		return 0, fmt.Errorf("list finished matches: %w", err)
	}
	if len(finished) == 0 {
		return neutralDifficulty, nil
	}

	goals := 0
	for _, m := range finished {
		switch opponentID {
		case m.HomeTeamID:
			if m.HomeScore != nil {
				goals += *m.HomeScore
			}
		case m.AwayTeamID:
			if m.AwayScore != nil {
				goals += *m.AwayScore
			}
		}
	}

	return difficultyBand(float64(goals) / float64(len(finished))), nil
}

func difficultyBand(goalsPerMatch float64) int {
	switch {
	case goalsPerMatch >= 2.5:
		return 5
	case goalsPerMatch >= 1.8:
		return 4
	case goalsPerMatch >= 1.0:
		return 3
	case goalsPerMatch >= 0.5:
		return 2
	default:
		return 1
	}
}
