package usecase

import (
	"context"
	"fmt"

	"github.com/wcfantasy/backend/internal/domain/match"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

type MatchSyncService struct {
	matchRepo match.Repository
	feed      LiveScoreProvider
	logger    *logging.Logger
}

func NewMatchSyncService(matchRepo match.Repository, feed LiveScoreProvider, logger *logging.Logger) *MatchSyncService {
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchSyncService{
		matchRepo: matchRepo,
		feed:      feed,
		logger:    logger,
	}
}

// SyncLiveScores runs one poll tick: fetch the feed, diff against local
// match state and commit every change in a single transaction. It returns
// the ids of matches that transitioned LIVE -> FINISHED during this tick, so
// each finished match triggers downstream stats processing exactly once. A
// feed failure degrades the tick to a no-op.
func (s *MatchSyncService) SyncLiveScores(ctx context.Context) ([]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncLiveScores")
	defer span.End()

	reported, err := s.feed.FetchMatches(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "live score fetch failed, skipping tick", "error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrExternalFetch, err)
	}

	var updates []match.StateUpdate
	var finished []string
	for _, item := range reported {
		local, exists, err := s.matchRepo.GetByExternalRef(ctx, item.ExternalRef)
		if err != nil {
			return nil, fmt.Errorf("get match by external ref: %w", err)
		}
		if !exists {
			// Feed knows fixtures we never seeded; ignore them.
			continue
		}

		next := match.NextStatus(local.Status, match.StatusFromFeed(item.StatusLabel))
		if next == local.Status &&
			intPtrEqual(local.HomeScore, item.HomeScore) &&
			intPtrEqual(local.AwayScore, item.AwayScore) {
			continue
		}

		if local.Status != match.StatusFinished && next == match.StatusFinished {
			finished = append(finished, local.ID)
		}
		updates = append(updates, match.StateUpdate{
			MatchID:   local.ID,
			Status:    next,
			HomeScore: item.HomeScore,
			AwayScore: item.AwayScore,
		})
	}

	if len(updates) == 0 {
		return nil, nil
	}

	if err := s.matchRepo.ApplyStateUpdates(ctx, updates); err != nil {
		return nil, fmt.Errorf("apply match state updates: %w", err)
	}

	s.logger.InfoContext(ctx, "live scores synced",
		"updated", len(updates),
		"finished", len(finished),
	)

	return finished, nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
