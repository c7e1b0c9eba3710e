package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wcfantasy/backend/internal/domain/playerstats"
)

type statsKey struct {
	matchID  string
	playerID string
}

type PlayerStatsRepository struct {
	mu    sync.RWMutex
	items map[statsKey]playerstats.Stats
	// kickoffByMatch orders ListRecentByPlayer; populated via SetMatchKickoff.
	kickoffByMatch map[string]time.Time
}

func NewPlayerStatsRepository() *PlayerStatsRepository {
	return &PlayerStatsRepository{
		items:          make(map[statsKey]playerstats.Stats),
		kickoffByMatch: make(map[string]time.Time),
	}
}

// SetMatchKickoff registers a match kickoff used to order recent stats.
func (r *PlayerStatsRepository) SetMatchKickoff(matchID string, kickoffAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.kickoffByMatch[matchID] = kickoffAt
}

func (r *PlayerStatsRepository) UpsertBatch(_ context.Context, items []playerstats.Stats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		r.items[statsKey{matchID: item.MatchID, playerID: item.PlayerID}] = item
	}

	return nil
}

func (r *PlayerStatsRepository) ListByMatch(_ context.Context, matchID string) ([]playerstats.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []playerstats.Stats
	for key, item := range r.items {
		if key.matchID == matchID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayerID < out[j].PlayerID
	})

	return out, nil
}

func (r *PlayerStatsRepository) ListRecentByPlayer(_ context.Context, playerID string, limit int) ([]playerstats.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []playerstats.Stats
	for key, item := range r.items {
		if key.playerID == playerID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return r.kickoffByMatch[out[i].MatchID].After(r.kickoffByMatch[out[j].MatchID])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *PlayerStatsRepository) GetSeasonTotals(_ context.Context, playerID string) (playerstats.SeasonTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := playerstats.SeasonTotals{PlayerID: playerID}
	for key, item := range r.items {
		if key.playerID != playerID {
			continue
		}
		totals.MatchesPlayed++
		totals.Goals += item.Goals
		totals.Assists += item.Assists
		totals.Points += item.FantasyPoints
		totals.Minutes += item.MinutesPlayed
		totals.Saves += item.Saves
		totals.YellowCards += item.YellowCards
		totals.RedCards += item.RedCards
		totals.GoalsConceded += item.GoalsConceded
	}

	return totals, nil
}
