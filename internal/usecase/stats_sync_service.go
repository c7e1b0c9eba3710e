package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/wcfantasy/backend/internal/domain/match"
	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/playerstats"
	"github.com/wcfantasy/backend/internal/domain/scoring"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

type StatsSyncService struct {
	matchRepo  match.Repository
	playerRepo player.Repository
	statsRepo  playerstats.Repository
	points     *PointsService
	feed       BoxScoreProvider
	logger     *logging.Logger
}

func NewStatsSyncService(
	matchRepo match.Repository,
	playerRepo player.Repository,
	statsRepo playerstats.Repository,
	points *PointsService,
	feed BoxScoreProvider,
	logger *logging.Logger,
) *StatsSyncService {
	if logger == nil {
		logger = logging.Default()
	}

	return &StatsSyncService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		statsRepo:  statsRepo,
		points:     points,
		feed:       feed,
		logger:     logger,
	}
}

// SyncMatchStats processes one finished match: it pulls the box score,
// upserts every player's stat row with computed fantasy points and the
// rating bonus, then folds the match into squad round totals. A match that
// is missing or not yet finished is skipped without error, so stale or
// re-delivered triggers are harmless. A feed failure aborts before any
// write. The stats upsert and the aggregation commit separately; a crash
// between them leaves the match with stats but no round points, which the
// pipeline's reconciliation sweep picks up on the next tick.
func (s *StatsSyncService) SyncMatchStats(ctx context.Context, matchID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsSyncService.SyncMatchStats")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	item, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return fmt.Errorf("get match: %w", err)
	}
	if !exists || item.Status != match.StatusFinished {
		s.logger.WarnContext(ctx, "stats sync skipped, match not finished locally", "match_id", matchID)
		return nil
	}

	lines, err := s.feed.FetchBoxScore(ctx, item.ExternalRef)
	if err != nil {
		return fmt.Errorf("%w: box score for match %s: %v", ErrExternalFetch, matchID, err)
	}

	rows := make([]playerstats.Stats, 0, len(lines))
	for _, line := range lines {
		p, exists, err := s.playerRepo.GetByExternalRef(ctx, line.PlayerExternalRef)
		if err != nil {
			return fmt.Errorf("get player by external ref: %w", err)
		}
		if !exists {
			// Feed lists players outside our catalog; skip them.
			continue
		}

		row := playerstats.Stats{
			MatchID:         matchID,
			PlayerID:        p.ID,
			MinutesPlayed:   line.MinutesPlayed,
			Goals:           line.Goals,
			Assists:         line.Assists,
			CleanSheet:      line.CleanSheet,
			GoalsConceded:   line.GoalsConceded,
			YellowCards:     line.YellowCards,
			RedCards:        line.RedCards,
			OwnGoals:        line.OwnGoals,
			PenaltiesScored: line.PenaltiesScored,
			PenaltiesMissed: line.PenaltiesMissed,
			Saves:           line.Saves,
		}
		row.FantasyPoints = scoring.ComputePoints(p.Position, row)
		if line.Rating != nil {
			row.Rating = *line.Rating
			row.FantasyPoints += scoring.RatingBonus(*line.Rating)
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		if err := s.statsRepo.UpsertBatch(ctx, rows); err != nil {
			return fmt.Errorf("upsert match stats: %w", err)
		}
	}

	if err := s.points.AggregateMatch(ctx, matchID); err != nil {
		return fmt.Errorf("aggregate match points: %w", err)
	}

	s.logger.InfoContext(ctx, "match stats synced", "match_id", matchID, "players", len(rows))
	return nil
}
