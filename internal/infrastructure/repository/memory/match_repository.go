package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wcfantasy/backend/internal/domain/match"
)

type MatchRepository struct {
	mu     sync.RWMutex
	items  map[string]match.Match
	orders []string
}

func NewMatchRepository(matches []match.Match) *MatchRepository {
	items := make(map[string]match.Match, len(matches))
	orders := make([]string, 0, len(matches))

	for _, m := range matches {
		items[m.ID] = m
		orders = append(orders, m.ID)
	}

	return &MatchRepository{
		items:  items,
		orders: orders,
	}
}

func (r *MatchRepository) GetByID(_ context.Context, matchID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[matchID]
	if !ok {
		return match.Match{}, false, nil
	}

	return m, true, nil
}

func (r *MatchRepository) GetByExternalRef(_ context.Context, externalRef string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.orders {
		if r.items[id].ExternalRef == externalRef {
			return r.items[id], true, nil
		}
	}

	return match.Match{}, false, nil
}

func (r *MatchRepository) List(_ context.Context) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id])
	}

	return out, nil
}

func (r *MatchRepository) ListByStatus(_ context.Context, status match.Status) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []match.Match
	for _, id := range r.orders {
		if r.items[id].Status == status {
			out = append(out, r.items[id])
		}
	}

	return out, nil
}

func (r *MatchRepository) NextScheduledByTeam(_ context.Context, teamID string, after time.Time) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []match.Match
	for _, id := range r.orders {
		m := r.items[id]
		if m.Status != match.StatusScheduled {
			continue
		}
		if m.HomeTeamID != teamID && m.AwayTeamID != teamID {
			continue
		}
		if !m.KickoffAt.After(after) {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return match.Match{}, false, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].KickoffAt.Before(candidates[j].KickoffAt)
	})

	return candidates[0], true, nil
}

func (r *MatchRepository) ListFinishedByTeam(_ context.Context, teamID string) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []match.Match
	for _, id := range r.orders {
		m := r.items[id]
		if m.Status != match.StatusFinished {
			continue
		}
		if m.HomeTeamID != teamID && m.AwayTeamID != teamID {
			continue
		}
		out = append(out, m)
	}

	return out, nil
}

func (r *MatchRepository) Upsert(_ context.Context, item match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		r.orders = append(r.orders, item.ID)
	}
	r.items[item.ID] = item

	return nil
}

func (r *MatchRepository) ApplyStateUpdates(_ context.Context, updates []match.StateUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, update := range updates {
		m, ok := r.items[update.MatchID]
		if !ok {
			continue
		}
		m.Status = update.Status
		if update.HomeScore != nil {
			m.HomeScore = update.HomeScore
		}
		if update.AwayScore != nil {
			m.AwayScore = update.AwayScore
		}
		r.items[update.MatchID] = m
	}

	return nil
}
