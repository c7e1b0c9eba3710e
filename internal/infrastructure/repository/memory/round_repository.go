package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wcfantasy/backend/internal/domain/round"
)

type RoundRepository struct {
	mu     sync.RWMutex
	items  map[string]round.Round
	orders []string
	// links maps round id to linked match ids, in link order.
	links map[string][]string
}

func NewRoundRepository(rounds []round.Round) *RoundRepository {
	items := make(map[string]round.Round, len(rounds))
	orders := make([]string, 0, len(rounds))

	for _, rd := range rounds {
		items[rd.ID] = rd
		orders = append(orders, rd.ID)
	}

	return &RoundRepository{
		items:  items,
		orders: orders,
		links:  make(map[string][]string),
	}
}

func (r *RoundRepository) GetByID(_ context.Context, roundID string) (round.Round, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rd, ok := r.items[roundID]
	if !ok {
		return round.Round{}, false, nil
	}

	return rd, true, nil
}

func (r *RoundRepository) CurrentAt(_ context.Context, at time.Time) (round.Round, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var current round.Round
	var found bool
	for _, id := range r.orders {
		rd := r.items[id]
		if at.Before(rd.StartAt) || at.After(rd.EndAt) {
			continue
		}
		if !found || rd.StartAt.Before(current.StartAt) {
			current = rd
			found = true
		}
	}

	return current, found, nil
}

func (r *RoundRepository) GetByMatch(_ context.Context, matchID string) (round.Round, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.orders {
		for _, linked := range r.links[id] {
			if linked == matchID {
				return r.items[id], true, nil
			}
		}
	}

	return round.Round{}, false, nil
}

func (r *RoundRepository) List(_ context.Context) ([]round.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]round.Round, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id])
	}

	return out, nil
}

func (r *RoundRepository) Upsert(_ context.Context, item round.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		r.orders = append(r.orders, item.ID)
	}
	r.items[item.ID] = item

	return nil
}

func (r *RoundRepository) LinkMatch(_ context.Context, roundID, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, linked := range r.links[roundID] {
		if linked == matchID {
			return nil
		}
	}
	r.links[roundID] = append(r.links[roundID], matchID)

	return nil
}
