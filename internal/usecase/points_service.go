package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wcfantasy/backend/internal/domain/match"
	"github.com/wcfantasy/backend/internal/domain/playerstats"
	"github.com/wcfantasy/backend/internal/domain/round"
	"github.com/wcfantasy/backend/internal/domain/roundpoints"
	"github.com/wcfantasy/backend/internal/domain/scoring"
	"github.com/wcfantasy/backend/internal/domain/squad"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

type PointsService struct {
	matchRepo  match.Repository
	roundRepo  round.Repository
	statsRepo  playerstats.Repository
	squadRepo  squad.Repository
	pointsRepo roundpoints.Repository
	logger     *logging.Logger
}

func NewPointsService(
	matchRepo match.Repository,
	roundRepo round.Repository,
	statsRepo playerstats.Repository,
	squadRepo squad.Repository,
	pointsRepo roundpoints.Repository,
	logger *logging.Logger,
) *PointsService {
	if logger == nil {
		logger = logging.Default()
	}

	return &PointsService{
		matchRepo:  matchRepo,
		roundRepo:  roundRepo,
		statsRepo:  statsRepo,
		squadRepo:  squadRepo,
		pointsRepo: pointsRepo,
		logger:     logger,
	}
}

// AggregateMatch folds one finished match's player points into every
// affected squad's round total. Every held player scores, bench included;
// captain counts double, vice-captain one and a half. Per-squad
// contributions go through the (squad, match) applied-points ledger, so
// re-running the aggregation for a match only moves totals by the delta.
func (s *PointsService) AggregateMatch(ctx context.Context, matchID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PointsService.AggregateMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	item, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return fmt.Errorf("get match: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	if item.Status != match.StatusFinished {
		return fmt.Errorf("%w: match %s is %s, not finished", ErrInconsistentState, matchID, item.Status)
	}

	matchRound, exists, err := s.roundRepo.GetByMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("get round for match: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: match %s is not linked to a round", ErrInconsistentState, matchID)
	}

	stats, err := s.statsRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("list match stats: %w", err)
	}

	totals := make(map[string]int)
	for _, line := range stats {
		holders, err := s.squadRepo.ListHoldersByPlayer(ctx, line.PlayerID)
		if err != nil {
			return fmt.Errorf("list squads holding player: %w", err)
		}
		for _, holder := range holders {
			totals[holder.SquadID] += scoring.Multiply(line.FantasyPoints, holder.IsCaptain, holder.IsViceCaptain)
		}
	}

	squadIDs := make([]string, 0, len(totals))
	for squadID := range totals {
		squadIDs = append(squadIDs, squadID)
	}
	sort.Strings(squadIDs)

	for _, squadID := range squadIDs {
		if err := s.pointsRepo.ApplyMatchPoints(ctx, squadID, matchRound.ID, matchID, totals[squadID]); err != nil {
			return fmt.Errorf("apply match points for squad %s: %w", squadID, err)
		}
	}

	s.logger.InfoContext(ctx, "match points aggregated",
		"match_id", matchID,
		"round_id", matchRound.ID,
		"squads", len(squadIDs),
	)

	return nil
}

// ReconcileFinishedMatches re-folds finished matches whose stat lines were
// persisted but whose round points never landed. The poller reports each
// finish exactly once, so a crash between the stats write and the
// aggregation would otherwise strand the match forever.
func (s *PointsService) ReconcileFinishedMatches(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PointsService.ReconcileFinishedMatches")
	defer span.End()

	finished, err := s.matchRepo.ListByStatus(ctx, match.StatusFinished)
	if err != nil {
		return fmt.Errorf("list finished matches: %w", err)
	}

	for _, item := range finished {
		applied, err := s.pointsRepo.HasMatchPoints(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("check applied points for match %s: %w", item.ID, err)
		}
		if applied {
			continue
		}

		stats, err := s.statsRepo.ListByMatch(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("list stats for match %s: %w", item.ID, err)
		}
		if len(stats) == 0 {
			continue
		}

		if err := s.AggregateMatch(ctx, item.ID); err != nil {
			s.logger.WarnContext(ctx, "stranded match re-aggregation failed",
				"match_id", item.ID,
				"error", err,
			)
			continue
		}
		s.logger.InfoContext(ctx, "re-aggregated stranded match points", "match_id", item.ID)
	}

	return nil
}

// RoundStandings lists a round's squads ordered by points descending with
// dense ranks assigned.
func (s *PointsService) RoundStandings(ctx context.Context, roundID string) ([]roundpoints.RoundPoints, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PointsService.RoundStandings")
	defer span.End()

	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return nil, fmt.Errorf("%w: round_id is required", ErrInvalidInput)
	}

	rows, err := s.pointsRepo.ListByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("list round points: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].SquadID < rows[j].SquadID
	})
	rank := 0
	lastPoints := 0
	for i := range rows {
		if i == 0 || rows[i].Points != lastPoints {
			rank++
			lastPoints = rows[i].Points
		}
		rows[i].Rank = rank
	}

	return rows, nil
}

// SquadRoundPoints returns one squad's total for the round; zero when the
// squad has not scored in it.
func (s *PointsService) SquadRoundPoints(ctx context.Context, squadID, roundID string) (roundpoints.RoundPoints, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PointsService.SquadRoundPoints")
	defer span.End()

	squadID = strings.TrimSpace(squadID)
	roundID = strings.TrimSpace(roundID)
	if squadID == "" || roundID == "" {
		return roundpoints.RoundPoints{}, fmt.Errorf("%w: squad_id and round_id are required", ErrInvalidInput)
	}

	row, exists, err := s.pointsRepo.GetBySquadAndRound(ctx, squadID, roundID)
	if err != nil {
		return roundpoints.RoundPoints{}, fmt.Errorf("get round points: %w", err)
	}
	if !exists {
		return roundpoints.RoundPoints{SquadID: squadID, RoundID: roundID}, nil
	}

	return row, nil
}
