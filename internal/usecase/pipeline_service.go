package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/wcfantasy/backend/internal/platform/logging"
)

// SyncPipeline is the scheduled unit of work: one live-score poll tick, a
// bounded fan-out of stats jobs for every match that finished during it, and
// a reconciliation sweep for matches a previous tick left half-processed.
type SyncPipeline struct {
	matchSync *MatchSyncService
	statsSync *StatsSyncService
	points    *PointsService
	features  *FeatureService
	logger    *logging.Logger
	workers   int
}

func NewSyncPipeline(
	matchSync *MatchSyncService,
	statsSync *StatsSyncService,
	points *PointsService,
	features *FeatureService,
	logger *logging.Logger,
	workers int,
) *SyncPipeline {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 4
	}

	return &SyncPipeline{
		matchSync: matchSync,
		statsSync: statsSync,
		points:    points,
		features:  features,
		logger:    logger,
		workers:   workers,
	}
}

// RunTick never returns an error to the scheduler: a failed feed fetch is
// logged and the tick ends, and each stats job fails independently. The
// reconciliation sweep runs every tick regardless, it needs no feed access.
func (p *SyncPipeline) RunTick(ctx context.Context) {
	finished, err := p.matchSync.SyncLiveScores(ctx)
	if err == nil && len(finished) > 0 {
		if err := p.processFinished(ctx, finished); err != nil {
			p.logger.ErrorContext(ctx, "stats fan-out failed", "error", err.Error())
		}
	}

	if err := p.points.ReconcileFinishedMatches(ctx); err != nil {
		p.logger.ErrorContext(ctx, "points reconciliation failed", "error", err.Error())
	}
}

func (p *SyncPipeline) processFinished(ctx context.Context, matchIDs []string) error {
	workerCount := p.workers
	if len(matchIDs) < workerCount {
		workerCount = len(matchIDs)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, matchID := range matchIDs {
		matchID := matchID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			p.processMatch(ctx, matchID)
		}); err != nil {
			workers.Done()
			return fmt.Errorf("submit stats job: %w", err)
		}
	}
	workers.Wait()

	return nil
}

func (p *SyncPipeline) processMatch(ctx context.Context, matchID string) {
	if err := p.statsSync.SyncMatchStats(ctx, matchID); err != nil {
		p.logger.ErrorContext(ctx, "stats sync failed", "match_id", matchID, "error", err.Error())
		return
	}
	if p.features != nil {
		if err := p.features.InvalidateMatch(ctx, matchID); err != nil {
			p.logger.WarnContext(ctx, "feature cache invalidation failed", "match_id", matchID, "error", err.Error())
		}
	}
}
